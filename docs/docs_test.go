package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestRegisteredDocRendersAPI(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc), "rendered swagger is not JSON")

	assert.Equal(t, "Irrigation supervisor API", doc.Info.Title)
	for _, p := range []string{"/api/v1/pump/{action}", "/api/v1/status", "/api/v1/logs", "/auth/sign-in"} {
		assert.Contains(t, doc.Paths, p)
	}
}
