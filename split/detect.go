package split

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUnknown:
		return "unknown"
	case encUTF8:
		return "utf8"
	case encUTF16BigEndian:
		return "utf16be"
	case encUTF16LittleEndian:
		return "utf16le"
	case encUTF32BigEndian:
		return "utf32be"
	case encUTF32LittleEndian:
		return "utf32le"
	}
	return fmt.Sprintf("srcEncoding(%d)", int(e))
}

// headerSize is enough to sniff archives and BOMs.
const headerSize = 262

var styleExt = []string{".css"}

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF looks for byte order mark. UTF-32LE has to be checked before
// UTF-16LE, their marks share prefix.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectReader wraps r so it produces UTF-8 text without byte order mark.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	// this should never happen
	panic(fmt.Sprintf("unsupported source encoding %d", int(enc)))
}

func hasStyleExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range styleExt {
		if ext == e {
			return true
		}
	}
	return false
}

// sniffStyle decides whether header belongs to stylesheet text. Anything
// filetype recognizes as known binary format is not.
func sniffStyle(header []byte) (bool, srcEncoding) {
	enc := detectUTF(header)
	if enc != encUnknown {
		return true, enc
	}
	if len(header) == 0 {
		return true, encUnknown
	}
	if kind, err := filetype.Match(header); err == nil && kind != filetype.Unknown {
		return false, encUnknown
	}
	// CSS is text, zero bytes without BOM mean something else
	return bytes.IndexByte(header, 0) < 0, encUnknown
}

func readHeader(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return header[:n], nil
}

// isArchiveFile checks file extension and content to make sure it is zip
// archive.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header, err := readHeader(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(header, "zip"), nil
}

// isStyleFile checks whether path points to stylesheet and detects its
// encoding.
func isStyleFile(path string) (bool, srcEncoding, error) {
	if !hasStyleExt(path) {
		return false, encUnknown, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	header, err := readHeader(f)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := sniffStyle(header)
	return ok, enc, nil
}

// isStyleInArchive does the same as isStyleFile for archive entry, name is
// already decoded entry name.
func isStyleInArchive(name string, f *zip.File) (bool, srcEncoding, error) {
	if !hasStyleExt(name) {
		return false, encUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	header, err := readHeader(r)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := sniffStyle(header)
	return ok, enc, nil
}
