package zip

import (
	"archive/zip"
	"bytes"
)

// Output is one exported model artifact to bundle.
type Output struct {
	Filename string
	MIME     string
	Data     []byte
}

// usdz containers are zip archives already; recompressing them wastes time
// for no size gain.
const mimeUSDZ = "model/vnd.usdz+zip"

// ArchiveOutputs packs the given outputs into a single zip archive. The MIME
// type of each artifact is recorded as the entry comment, and already-zipped
// formats are stored without recompression. Entries without a filename are
// skipped; a write failure aborts the archive.
func ArchiveOutputs(outputs []Output) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, out := range outputs {
		if out.Filename == "" {
			continue
		}
		hdr := &zip.FileHeader{
			Name:    out.Filename,
			Comment: out.MIME,
			Method:  zip.Deflate,
		}
		if out.MIME == mimeUSDZ {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			continue
		}
		if _, err := w.Write(out.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
