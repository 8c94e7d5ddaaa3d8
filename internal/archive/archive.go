// Package archive validates and unpacks the ZIP archives the portal serves,
// triaging their contents into the structured spreadsheet export and the
// rendered statement documents.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cvm-dfp-bot/internal/logger"
)

// spreadsheetName is the canonical structured export the portal puts in
// every DFP archive.
const spreadsheetName = "dadosdocumento.xlsx"

var zipSignature = []byte{'P', 'K', 0x03, 0x04}

// ValidateZip reports whether path exists, is non-empty and starts with the
// ZIP local-file signature. Cheap triage before unpacking; truncated
// downloads fail here.
func ValidateZip(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()
	signature := make([]byte, 4)
	if _, err := io.ReadFull(file, signature); err != nil {
		return false
	}
	return bytes.Equal(signature, zipSignature)
}

// Contents is the triaged result of unpacking one archive.
type Contents struct {
	Extracted []string
	XLSXPaths []string
	PDFPaths  []string
}

// Extract unpacks an archive into destDir and triages the extracted paths.
// Member paths escaping destDir are rejected.
func Extract(ctx context.Context, zipPath, destDir string) (*Contents, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destDir, err)
	}
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer reader.Close()

	contents := &Contents{}
	for _, member := range reader.File {
		dest, err := memberPath(destDir, member.Name)
		if err != nil {
			return nil, err
		}
		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := extractMember(member, dest); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", member.Name, err)
		}
		contents.Extracted = append(contents.Extracted, dest)
		lowered := strings.ToLower(filepath.Base(dest))
		switch {
		case lowered == spreadsheetName:
			contents.XLSXPaths = append(contents.XLSXPaths, dest)
		case strings.HasSuffix(lowered, ".pdf"):
			contents.PDFPaths = append(contents.PDFPaths, dest)
		}
	}

	logger.Info(ctx, "Archive extracted",
		"zip", zipPath,
		"files", len(contents.Extracted),
		"xlsx", len(contents.XLSXPaths),
		"pdfs", len(contents.PDFPaths),
	)
	return contents, nil
}

func memberPath(destDir, name string) (string, error) {
	dest := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member %q escapes destination", name)
	}
	return dest, nil
}

func extractMember(member *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := member.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SHA256File hex-digests a file, used as the document checksum in the run
// output.
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	digest := sha256.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
