// Package api exposes the container core over HTTP using Echo, mirroring
// the upload-to-temp-file-then-process shape of the original compress and
// decompress routes.
package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/kelbwah/huffmin-archiver/internal/container"
)

// httpStatus maps a container error kind to its HTTP status.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, container.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, container.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, container.ErrCorrupted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, container.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(err error) *echo.HTTPError {
	return echo.NewHTTPError(httpStatus(err), err.Error())
}

// saveUpload writes the named multipart field to a fresh temp file and
// returns its path.
func saveUpload(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", container.ErrInvalidArgument
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "huffminarchiver-upload-*")
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// Archive handles a multipart upload of one or more files under the
// "files" field and responds with the resulting container.
func Archive(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fail(container.ErrInvalidArgument)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return fail(container.ErrInvalidArgument)
	}

	srcDir, err := os.MkdirTemp("", "huffminarchiver-src-*")
	if err != nil {
		return fail(err)
	}
	defer os.RemoveAll(srcDir)

	var entries []container.Entry
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return fail(err)
		}
		full := filepath.Join(srcDir, filepath.Base(fh.Filename))
		dst, err := os.Create(full)
		if err != nil {
			src.Close()
			return fail(err)
		}
		_, copyErr := io.Copy(dst, src)
		src.Close()
		dst.Close()
		if copyErr != nil {
			return fail(copyErr)
		}
		entries = append(entries, container.Entry{Full: full, Trimmed: filepath.Base(fh.Filename)})
	}

	destPath := filepath.Join(srcDir, "archive.bin")
	if err := container.Create(entries, destPath); err != nil {
		return fail(err)
	}

	return c.Attachment(destPath, "archive.bin")
}

// Info handles a multipart upload of a container under the "archive" field
// and responds with a JSON summary of every member.
func Info(c echo.Context) error {
	path, err := saveUpload(c, "archive")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(path)

	a, err := container.Open(path)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	return c.JSON(http.StatusOK, a.Info())
}

// Check handles a multipart upload of a container under the "archive"
// field and responds with its integrity verdict.
func Check(c echo.Context) error {
	path, err := saveUpload(c, "archive")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(path)

	ok, err := container.CheckIntegrity(path)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": ok})
}

// ExtractOne handles a multipart upload of a container under "archive" plus
// a "member" form field, and responds with that member's decoded bytes.
func ExtractOne(c echo.Context) error {
	path, err := saveUpload(c, "archive")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(path)

	member := c.FormValue("member")
	if member == "" {
		return fail(container.ErrInvalidArgument)
	}

	a, err := container.Open(path)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	destDir, err := os.MkdirTemp("", "huffminarchiver-extract-*")
	if err != nil {
		return fail(err)
	}
	defer os.RemoveAll(destDir)

	ok, err := a.ExtractOne(member, destDir)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(container.ErrNotFound)
	}

	// The member may live in a subdirectory of the archive; serve the
	// file from wherever its stored path placed it under destDir.
	var extracted string
	err = filepath.Walk(destDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == member {
			extracted = path
		}
		return nil
	})
	if err != nil || extracted == "" {
		return fail(container.ErrNotFound)
	}
	return c.Attachment(extracted, member)
}

// Update handles a multipart upload of a container under "archive" plus a
// replacement file under "file", updates the named member in place, and
// responds with the updated container.
func Update(c echo.Context) error {
	path, err := saveUpload(c, "archive")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(path)

	replacementPath, err := saveUpload(c, "file")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(replacementPath)

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(container.ErrInvalidArgument)
	}
	namedReplacement := filepath.Join(filepath.Dir(replacementPath), filepath.Base(fh.Filename))
	if err := os.Rename(replacementPath, namedReplacement); err != nil {
		return fail(err)
	}
	defer os.Remove(namedReplacement)

	a, err := container.Open(path)
	if err != nil {
		return fail(err)
	}
	if err := a.Update(namedReplacement); err != nil && !errors.Is(err, container.ErrUpToDate) {
		a.Close()
		return fail(err)
	}
	a.Close()

	return c.Attachment(path, filepath.Base(path))
}
