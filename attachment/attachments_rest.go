package attachment

import (
	"fixflow/bizerror"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const PathUploads = "/v1/uploads"

func RegisterUploadsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathUploads, middleWares...)
	g.GET("/*key", handleDownload)
}

func handleDownload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		panic(&bizerror.ErrBadParam{})
	}

	reader, err := ActiveBlobStore.Open(key)
	if err != nil {
		panic(bizerror.ErrNotFound)
	}
	defer reader.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}
