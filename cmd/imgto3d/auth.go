package main

import (
	"context"
	"flag"
	"fmt"
)

func runLogin(a *app, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		fail("usage: imgto3d login -email <email> -password <password>")
	}

	resp, err := a.client.Login(context.Background(), *email, *password)
	if err != nil {
		fail("login: %v", err)
	}
	fmt.Printf("logged in as user %s\n", resp.UserID)
	if resp.OrgID != "" {
		fmt.Printf("organization: %s\n", resp.OrgID)
	}
	fmt.Println("export IMGTO3D_SESSION_TOKEN=" + resp.AccessToken)
}

func runSignup(a *app, args []string) {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	orgName := fs.String("org-name", "", "optional organization name")
	_ = fs.Parse(args)

	if *email == "" || *password == "" {
		fail("usage: imgto3d signup -email <email> -password <password> [-org-name <name>]")
	}

	resp, err := a.client.Signup(context.Background(), *email, *password, *orgName)
	if err != nil {
		fail("signup: %v", err)
	}
	fmt.Printf("account created: user %s\n", resp.UserID)
	fmt.Println("export IMGTO3D_SESSION_TOKEN=" + resp.AccessToken)
}

func runKeys(a *app, args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	name := fs.String("name", "", "key name")
	orgID := fs.String("org", "", "optional organization id")
	_ = fs.Parse(args)

	if *name == "" {
		fail("usage: imgto3d keys -name <name> [-org <org-id>]")
	}

	key, err := a.client.CreateAPIKey(context.Background(), *name, *orgID)
	if err != nil {
		fail("keys: %v", err)
	}
	fmt.Printf("created key %s (%s)\n", key.Name, key.ID)
	fmt.Println("store it now, it is not shown again:")
	fmt.Println("export IMGTO3D_API_KEY=" + key.Key)
}
