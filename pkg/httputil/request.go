package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// DefaultMultipartMemory is the in-memory budget for multipart parsing;
// larger parts spill to temporary files
const DefaultMultipartMemory = 8 << 20

// FilePart is an uploaded file read fully into memory
type FilePart struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter and writes error on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// IsMultipart reports whether the request body is multipart/form-data
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// ParseMultipart parses a multipart form and returns its first-value text
// fields together with the file under fileField. The file is nil when the
// field is absent. At most maxFileBytes+1 bytes of the file are read, so
// callers can detect oversize uploads without buffering them.
func ParseMultipart(r *http.Request, fileField string, maxFileBytes int64) (map[string]string, *FilePart, error) {
	if err := r.ParseMultipartForm(DefaultMultipartMemory); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	file, header, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return fields, nil, nil
	} else if err != nil {
		return nil, nil, fmt.Errorf("invalid file field %s: %w", fileField, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFileBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", fileField, err)
	}

	return fields, &FilePart{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

// OptionalString returns a pointer to the trimmed value, or nil when the
// key is absent
func OptionalString(fields map[string]string, key string) *string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}
