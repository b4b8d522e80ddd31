// internal/utils/pagination_test.go
package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   PaginationParams
	}{
		{"defaults", "/", PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}},
		{"explicit", "/?page=3&limit=50&sort=amount&order=asc&status=failed",
			PaginationParams{Page: 3, Limit: 50, Sort: "amount", Order: "asc", Status: "failed"}},
		{"out of range", "/?page=-1&limit=1000&order=sideways",
			PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}},
		{"garbage", "/?page=x&limit=y", PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testContext(tt.target)
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]int{1, 2}, 41, PaginationParams{Page: 2, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, int64(41), result.Total)

	result = CreatePaginationResult(nil, 5, PaginationParams{Page: 1})
	assert.Equal(t, 0, result.TotalPages)
}

func TestPaginatedResponse(t *testing.T) {
	c, w := testContext("/")
	PaginatedResponse(c, CreatePaginationResult([]string{"a"}, 21, PaginationParams{Page: 1, Limit: 20}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "21", w.Header().Get("X-Total-Count"))
	assert.Equal(t, "2", w.Header().Get("X-Total-Pages"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	meta := response["meta"].(map[string]interface{})
	pagination := meta["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["total_pages"])
}

func TestResultAndErrorResponses(t *testing.T) {
	c, w := testContext("/")
	ResultResponse(c)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["data"].(map[string]interface{})["result"])

	c, w = testContext("/")
	UnauthorizedResponse(c, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "UNAUTHENTICATED", response["error"].(map[string]interface{})["code"])
}

func TestHashBlake2b(t *testing.T) {
	a := HashBlake2b([]byte("a"), []byte("b"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashBlake2b([]byte("a"), []byte("b")))
	assert.Equal(t, a, HashBlake2b([]byte("ab")))
	assert.NotEqual(t, a, HashBlake2b([]byte("ba")))
	assert.True(t, ValidateHash(a, []byte("ab")))
	assert.False(t, ValidateHash(a, []byte("b")))
}
