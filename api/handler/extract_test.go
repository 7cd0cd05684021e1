package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/eurocomp/extractor"
	"github.com/use-agent/eurocomp/models"
	"github.com/use-agent/eurocomp/scraper"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeNavigator returns a canned page or error and records the URLs it saw.
type fakeNavigator struct {
	rendered *scraper.Rendered
	err      error
	calls    []string
}

func (f *fakeNavigator) Name() string { return "fake" }

func (f *fakeNavigator) Stats() models.PoolStats { return models.PoolStats{MaxPages: 5, ActivePages: 1} }

func (f *fakeNavigator) Render(_ context.Context, url string) (*scraper.Rendered, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.rendered, nil
}

const productPage = `<html><head>
<meta name="description" content="meta fallback">
</head><body>
<h1 class="product-title">Teclado Mecánico Redragon</h1>
<div class="product-price"><span class="price">$185.00</span></div>
<div class="product-image"><img src="/media/teclado.jpg"></div>
<div class="product-description">  Switches rojos, retroiluminación RGB  </div>
</body></html>`

func newExtractRouter(nav scraper.Navigator) *gin.Engine {
	r := gin.New()
	r.POST("/extract-eurocomp", Extract(nav, extractor.New(nil, extractor.DefaultOptions()), "eurocompcr.com"))
	return r
}

func postExtract(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/extract-eurocomp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExtract_Success(t *testing.T) {
	nav := &fakeNavigator{rendered: &scraper.Rendered{
		HTML:     productPage,
		FinalURL: "https://www.eurocompcr.com/teclado-redragon",
	}}

	w := postExtract(t, newExtractRouter(nav), `{"url":"https://www.eurocompcr.com/teclado-redragon"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.ExtractionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	assert.Equal(t, models.ExtractionResult{
		Name:        "Teclado Mecánico Redragon",
		PriceUSD:    "185.00",
		PriceCRC:    "105570",
		Image:       "https://www.eurocompcr.com/media/teclado.jpg",
		Description: "Switches rojos, retroiluminación RGB",
	}, got)
	assert.Equal(t, []string{"https://www.eurocompcr.com/teclado-redragon"}, nav.calls)
}

func TestExtract_EmptyPageKeepsShape(t *testing.T) {
	nav := &fakeNavigator{rendered: &scraper.Rendered{
		HTML:     "<html><body><p>Sin datos</p></body></html>",
		FinalURL: "https://eurocompcr.com/x",
	}}

	w := postExtract(t, newExtractRouter(nav), `{"url":"https://eurocompcr.com/x"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"name", "price_usd", "price_crc", "image", "description"} {
		assert.Equal(t, "", raw[key], key)
	}
}

func TestExtract_DescriptionFallbackTruncated(t *testing.T) {
	long := strings.Repeat("descripción larga ", 30)
	nav := &fakeNavigator{rendered: &scraper.Rendered{
		HTML:     fmt.Sprintf(`<html><body><div id="tab-description">%s</div></body></html>`, long),
		FinalURL: "https://eurocompcr.com/x",
	}}

	w := postExtract(t, newExtractRouter(nav), `{"url":"https://eurocompcr.com/x"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.ExtractionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "", got.Name)
	assert.NotEmpty(t, got.Description)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Description), 200)
}

func TestExtract_RejectsBeforeRendering(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"empty url", `{"url":""}`},
		{"url not a string", `{"url":42}`},
		{"not json", `url=https://eurocompcr.com`},
		{"other domain", `{"url":"https://www.amazon.com/dp/B000"}`},
		{"lookalike domain", `{"url":"https://eurocompcr.com.evil.example/x"}`},
		{"suffix without dot", `{"url":"https://noteurocompcr.com/x"}`},
		{"ftp scheme", `{"url":"ftp://eurocompcr.com/x"}`},
		{"relative", `{"url":"/producto/1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakeNavigator{}
			w := postExtract(t, newExtractRouter(nav), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, nav.calls, "navigator must not be called")

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, "eurocompcr.com")
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestExtract_RenderFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", models.NewScrapeError(models.ErrCodeTimeout, "navigation to target URL failed", context.DeadlineExceeded)},
		{"navigation", models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", errors.New("net::ERR_CONNECTION_RESET"))},
		{"untyped", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakeNavigator{err: tt.err}
			w := postExtract(t, newExtractRouter(nav), `{"url":"https://eurocompcr.com/p"}`)

			assert.Equal(t, http.StatusInternalServerError, w.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestValidateProductURL(t *testing.T) {
	got, err := ValidateProductURL("  https://EUROCOMPCR.com/p?id=1 ", "eurocompcr.com")
	require.NoError(t, err)
	assert.Equal(t, "https://EUROCOMPCR.com/p?id=1", got)

	_, err = ValidateProductURL("https://shop.eurocompcr.com/p", "eurocompcr.com")
	assert.NoError(t, err)

	_, err = ValidateProductURL("http://[::1", "eurocompcr.com")
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
}

func TestMapErrorToStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, mapErrorToStatus(models.NewScrapeError(models.ErrCodeInvalidInput, "", nil)))
	assert.Equal(t, http.StatusInternalServerError, mapErrorToStatus(models.NewScrapeError(models.ErrCodeTimeout, "", nil)))
	assert.Equal(t, http.StatusInternalServerError, mapErrorToStatus(models.NewScrapeError(models.ErrCodeBrowserCrash, "", nil)))
}
