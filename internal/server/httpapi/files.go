package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/services"
)

// multipartMemory is how much of an upload is buffered in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

// multipartOverhead is the room left above the quota for multipart framing.
const multipartOverhead = 1 << 20

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Files.List(r.Context(), callerFrom(r.Context()).Identity)
	if err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "files": names})
}

func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.QuotaBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, styleMessage, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Error: Upload exceeds the %dMB bucket limit", s.cfg.QuotaBytes>>20))
			return
		}
		writeError(w, styleMessage, http.StatusBadRequest, "Error: Invalid multipart body")
		return
	}
	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		headers = append(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"]...)
	}
	if len(headers) == 0 {
		writeError(w, styleMessage, http.StatusBadRequest, "Error: No files provided")
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.fail(w, r, styleMessage, fmt.Errorf("error opening upload part: %w", err))
			return
		}
		defer f.Close()
		files = append(files, services.UploadFile{Name: fh.Filename, Size: fh.Size, Body: f})
	}

	outcomes, err := s.svc.Files.Upload(r.Context(), callerFrom(r.Context()).Identity, files)
	if err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	writeJSON(w, http.StatusOK, newUploadResponse(outcomes))
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req DeleteFilesRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errInvalidJSON) {
			writeError(w, styleMessage, http.StatusBadRequest, "Error: Invalid JSON format in request body")
			return
		}
		writeError(w, styleMessage, http.StatusBadRequest, "Error: No filenames provided")
		return
	}

	res, err := s.svc.Files.Delete(r.Context(), callerFrom(r.Context()).Identity, req.Filenames)
	if err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteFilesResponse{
		Success:       true,
		DeletedFiles:  nonNil(res.Deleted),
		NotFoundFiles: nonNil(res.NotFound),
	})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		writeError(w, styleMessage, http.StatusBadRequest, "Error: No filename provided")
		return
	}

	body, err := s.svc.Files.Download(r.Context(), callerFrom(r.Context()).Identity, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, styleMessage, http.StatusNotFound, fmt.Sprintf("Error: File '%s' does not exist.", name))
			return
		}
		s.fail(w, r, styleMessage, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn(r.Context(), "file download interrupted", "file", name, "error", err)
	}
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Files.Usage(r.Context(), callerFrom(r.Context()).Identity)
	if err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	writeJSON(w, http.StatusOK, UsageResponse{
		Success:    true,
		UsedBytes:  u.Bytes,
		UsedMiB:    u.MiB,
		QuotaBytes: u.QuotaBytes,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
