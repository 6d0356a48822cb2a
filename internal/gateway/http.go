package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tillsync/tillsync/internal/buildinfo"
	"github.com/tillsync/tillsync/internal/queryspec"
)

// errorBody is the wire shape of a failed operation.
type errorBody struct {
	Message string `json:"message"`
}

// response is the {data, error} envelope every query answer uses.
// Exactly one of Data and Error is non-null.
type response struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

// Router builds the HTTP surface over the gateway:
//
//	POST /api/query   - execute one OperationSpec
//	GET  /api/runtime - build metadata + gateway stats
//
// Status mapping: 200 on success, 500 when the store binding is absent,
// 400 for every other caught processing failure (unsafe identifier,
// table not allowed, unsupported action, remote operation errors).
func Router(g *Gateway) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/query", func(c *gin.Context) {
		var spec queryspec.OperationSpec
		if err := c.ShouldBindJSON(&spec); err != nil {
			c.JSON(http.StatusBadRequest, response{Error: &errorBody{Message: err.Error()}})
			return
		}

		rows, err := g.Do(c.Request.Context(), spec)
		if err != nil {
			status := http.StatusBadRequest
			if IsBindingMissing(err) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, response{Error: &errorBody{Message: errorMessage(err)}})
			return
		}

		c.JSON(http.StatusOK, response{Data: rows})
	})

	r.GET("/api/runtime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"build": buildinfo.Get(),
			"stats": g.Monitor().Snapshot(),
		})
	})

	return r
}

// errorMessage unwraps a QueryError's message so callers see the store's
// text verbatim, without the code prefix.
func errorMessage(err error) string {
	if qe, ok := err.(*QueryError); ok {
		return qe.Message
	}
	return err.Error()
}
