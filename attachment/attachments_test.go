package attachment_test

import (
	"bytes"
	"fixflow/attachment"
	"fixflow/bizerror"
	"fixflow/session"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func buildFileHeaders(t *testing.T, files map[string]struct {
	Content  string
	Mimetype string
}) []*multipart.FileHeader {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="attachments"; filename="`+name+`"`)
		h.Set("Content-Type", f.Mimetype)
		part, err := writer.CreatePart(h)
		Expect(err).To(BeNil())
		_, err = part.Write([]byte(f.Content))
		Expect(err).To(BeNil())
	}
	Expect(writer.Close()).To(BeNil())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	Expect(req.ParseMultipartForm(32 << 20)).To(BeNil())
	return req.MultipartForm.File["attachments"]
}

func setupStore(t *testing.T) {
	attachment.ActiveBlobStore = &attachment.LocalBlobStore{BaseDir: t.TempDir()}
}

func TestSaveUploads(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should store files under the directory key and return their metadata", func(t *testing.T) {
		setupStore(t)

		headers := buildFileHeaders(t, map[string]struct {
			Content  string
			Mimetype string
		}{"photo.JPG": {Content: "jpeg-bytes", Mimetype: "image/jpeg"}})

		records, err := attachment.SaveUploads("TKT001", headers)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))
		Expect(records[0].Filename).To(Equal("photo.JPG"))
		Expect(records[0].Mimetype).To(Equal("image/jpeg"))
		Expect(records[0].Size).To(Equal(int64(len("jpeg-bytes"))))
		Expect(strings.HasSuffix(records[0].StoredFilename, ".jpg")).To(BeTrue())
		Expect(records[0].Path).To(Equal("/v1/uploads/TKT001/" + records[0].StoredFilename))

		reader, err := attachment.ActiveBlobStore.Open("TKT001/" + records[0].StoredFilename)
		Expect(err).To(BeNil())
		defer reader.Close()
		content, err := ioutil.ReadAll(reader)
		Expect(err).To(BeNil())
		Expect(string(content)).To(Equal("jpeg-bytes"))
	})

	t.Run("should reject more than five files", func(t *testing.T) {
		setupStore(t)

		files := map[string]struct {
			Content  string
			Mimetype string
		}{}
		for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png"} {
			files[name] = struct {
				Content  string
				Mimetype string
			}{Content: "x", Mimetype: "image/png"}
		}
		_, err := attachment.SaveUploads("TKT001", buildFileHeaders(t, files))
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrBadParam{}))
	})

	t.Run("should reject an unsupported mimetype", func(t *testing.T) {
		setupStore(t)

		headers := buildFileHeaders(t, map[string]struct {
			Content  string
			Mimetype string
		}{"run.exe": {Content: "MZ", Mimetype: "application/octet-stream"}})
		_, err := attachment.SaveUploads("TKT001", headers)
		Expect(err).To(BeAssignableToTypeOf(&bizerror.ErrBadParam{}))
	})
}

func TestValidateFiles(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should accept supported files without touching the store", func(t *testing.T) {
		attachment.ActiveBlobStore = nil

		headers := buildFileHeaders(t, map[string]struct {
			Content  string
			Mimetype string
		}{"photo.png": {Content: "png-bytes", Mimetype: "image/png"}, "doc.pdf": {Content: "%PDF", Mimetype: "application/pdf"}})
		Expect(attachment.ValidateFiles(headers)).To(BeNil())
		Expect(attachment.ValidateFiles(nil)).To(BeNil())
	})

	t.Run("should reject an unsupported mimetype before anything is stored", func(t *testing.T) {
		attachment.ActiveBlobStore = nil

		headers := buildFileHeaders(t, map[string]struct {
			Content  string
			Mimetype string
		}{"run.exe": {Content: "MZ", Mimetype: "application/octet-stream"}})
		Expect(attachment.ValidateFiles(headers)).To(BeAssignableToTypeOf(&bizerror.ErrBadParam{}))
	})
}

func TestRemoveUploads(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should drop exactly the listed stored files", func(t *testing.T) {
		setupStore(t)

		headers := buildFileHeaders(t, map[string]struct {
			Content  string
			Mimetype string
		}{"a.png": {Content: "a", Mimetype: "image/png"}})
		records, err := attachment.SaveUploads("TKT001", headers)
		Expect(err).To(BeNil())
		Expect(attachment.ActiveBlobStore.Save("TKT001/keep.png", strings.NewReader("keep"))).To(BeNil())

		attachment.RemoveUploads(records)

		_, err = attachment.ActiveBlobStore.Open("TKT001/" + records[0].StoredFilename)
		Expect(err).ToNot(BeNil())
		reader, err := attachment.ActiveBlobStore.Open("TKT001/keep.png")
		Expect(err).To(BeNil())
		reader.Close()
	})
}

func TestPurgeTicketFiles(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should drop direct and comment files of one ticket only", func(t *testing.T) {
		setupStore(t)

		store := attachment.ActiveBlobStore
		Expect(store.Save("TKT001/a.png", strings.NewReader("a"))).To(BeNil())
		Expect(store.Save("comments/TKT001/b.png", strings.NewReader("b"))).To(BeNil())
		Expect(store.Save("TKT002/c.png", strings.NewReader("c"))).To(BeNil())

		Expect(attachment.PurgeTicketFiles("TKT001")).To(BeNil())

		_, err := store.Open("TKT001/a.png")
		Expect(err).ToNot(BeNil())
		_, err = store.Open("comments/TKT001/b.png")
		Expect(err).ToNot(BeNil())
		reader, err := store.Open("TKT002/c.png")
		Expect(err).To(BeNil())
		reader.Close()
	})
}

func TestHandleDownload(t *testing.T) {
	RegisterTestingT(t)

	buildRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(bizerror.ErrorHandling())
		attachment.RegisterUploadsRestAPI(router)
		return router
	}

	t.Run("should stream a stored file", func(t *testing.T) {
		setupStore(t)
		router := buildRouter()
		Expect(attachment.ActiveBlobStore.Save("TKT001/a.png", strings.NewReader("png-bytes"))).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/v1/uploads/TKT001/a.png", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("png-bytes"))
	})

	t.Run("should answer a missing file with 404", func(t *testing.T) {
		setupStore(t)
		router := buildRouter()

		req := httptest.NewRequest(http.MethodGet, "/v1/uploads/TKT001/missing.png", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	t.Run("should serve only authenticated requests behind the token filter", func(t *testing.T) {
		setupStore(t)
		router := gin.New()
		router.Use(bizerror.ErrorHandling())
		attachment.RegisterUploadsRestAPI(router, session.TokenAuthFilter())
		Expect(attachment.ActiveBlobStore.Save("TKT001/report.pdf", strings.NewReader("pdf-bytes"))).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/v1/uploads/TKT001/report.pdf", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))

		token, err := session.SignToken(session.Identity{ID: 10, Name: "ann", Role: session.RoleUser}, time.Now())
		Expect(err).To(BeNil())
		req = httptest.NewRequest(http.MethodGet, "/v1/uploads/TKT001/report.pdf", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("pdf-bytes"))
	})

	t.Run("should refuse path traversal", func(t *testing.T) {
		setupStore(t)
		router := buildRouter()

		req := httptest.NewRequest(http.MethodGet, "/v1/uploads/..%2F..%2Fetc%2Fpasswd", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
}
