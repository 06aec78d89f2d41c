package portal

import (
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/muurk/apportal/internal/logging"
	"go.uber.org/zap"
)

// DefaultUpdatePath is where the firmware form is served.
const DefaultUpdatePath = "/firmware"

// DefaultMaxFirmwareSize limits an uploaded image.
const DefaultMaxFirmwareSize = 4 << 20

// UploadField is the multipart field carrying the image.
const UploadField = "update"

const updateForm = "<!DOCTYPE html><html><body>" +
	"<form method='POST' action='' enctype='multipart/form-data'>" +
	"<input type='file' accept='.bin' name='" + UploadField + "'>" +
	"<input type='submit' value='Update'></form></body></html>"

// Updater receives firmware images over HTTP and stores them in a
// directory. It implements provision.UpdateServer. Until UpdateCredentials
// is called the endpoint is open, matching the access point phase where
// only the AP password protects the network.
type Updater struct {
	mu       sync.RWMutex
	dir      string
	path     string
	user     string
	password string
	maxSize  int64
	onUpload func(path string, size int64)
}

// NewUpdater creates an Updater writing into dir.
func NewUpdater(dir string) *Updater {
	return &Updater{dir: dir, maxSize: DefaultMaxFirmwareSize}
}

// OnUpload sets a function called after an image was stored.
func (u *Updater) OnUpload(f func(path string, size int64)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onUpload = f
}

// Setup serves the updater at path and clears any credentials.
func (u *Updater) Setup(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.path = path
	u.user = ""
	u.password = ""
}

// UpdateCredentials requires basic auth with user and password.
func (u *Updater) UpdateCredentials(user, password string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.user = user
	u.password = password
}

// Path returns the path set by Setup.
func (u *Updater) Path() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.path
}

func (u *Updater) authorized(r *http.Request) bool {
	u.mu.RLock()
	user, password := u.user, u.password
	u.mu.RUnlock()

	if user == "" {
		return true
	}
	gotUser, gotPass, ok := r.BasicAuth()
	return ok &&
		subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1 &&
		subtle.ConstantTimeCompare([]byte(gotPass), []byte(password)) == 1
}

// ServeHTTP serves the upload form on GET and stores the image on POST.
func (u *Updater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !u.authorized(r) {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", AuthRealm))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = io.WriteString(w, updateForm)
	case http.MethodPost:
		u.receive(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (u *Updater) receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxSize+1024)
	if err := r.ParseMultipartForm(u.maxSize); err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		http.Error(w, "Missing firmware image", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, size, err := u.store(filepath.Base(header.Filename), file)
	if err != nil {
		logging.Error("Firmware upload failed", zap.Error(err))
		http.Error(w, "Update failed", http.StatusInternalServerError)
		return
	}

	logging.Info("Firmware image received",
		zap.String("path", path),
		zap.Int64("bytes", size),
	)

	u.mu.RLock()
	cb := u.onUpload
	u.mu.RUnlock()
	if cb != nil {
		cb(path, size)
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "Update Success!\n")
}

// store writes the image to a temporary file and renames it into place.
func (u *Updater) store(name string, src io.Reader) (string, int64, error) {
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "firmware.bin"
	}
	if err := os.MkdirAll(u.dir, 0700); err != nil {
		return "", 0, fmt.Errorf("failed to create firmware directory: %w", err)
	}

	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to write firmware image: %w", err)
	}

	dst := filepath.Join(u.dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, fmt.Errorf("failed to move firmware image: %w", err)
	}
	return dst, size, nil
}
