package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// extractRequest mirrors the API request model.
type extractRequest struct {
	URL string `json:"url"`
}

// extractResponse mirrors the API success body.
type extractResponse struct {
	Name        string `json:"name"`
	PriceUSD    string `json:"price_usd"`
	PriceCRC    string `json:"price_crc"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// errorResponse mirrors the API error body.
type errorResponse struct {
	Error    string `json:"error"`
	Details  string `json:"details"`
	Received string `json:"received"`
}

func main() {
	apiURL := os.Getenv("EUROCOMP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}

	s := server.NewMCPServer(
		"eurocomp",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Render a eurocompcr.com product page in a headless browser and return its name, USD price, CRC price (13% tax, 505 CRC/USD), image URL and description."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Product page URL on eurocompcr.com"),
		),
	)

	s.AddTool(extractTool, handleExtract(strings.TrimRight(apiURL, "/")))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleExtract(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 90 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(extractRequest{URL: url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/extract-eurocomp", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			var errResp errorResponse
			if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error == "" {
				return mcp.NewToolResultError(fmt.Sprintf("API returned HTTP %d", resp.StatusCode)), nil
			}
			msg := fmt.Sprintf("[%d] %s", resp.StatusCode, errResp.Error)
			if errResp.Details != "" {
				msg += ": " + errResp.Details
			}
			return mcp.NewToolResultError(msg), nil
		}

		var product extractResponse
		if err := json.Unmarshal(respBody, &product); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		return mcp.NewToolResultText(formatProduct(product)), nil
	}
}

// formatProduct renders the product as labelled lines, "-" for missing fields.
func formatProduct(p extractResponse) string {
	var sb strings.Builder
	line := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, value)
	}
	line("Name", p.Name)
	line("Price (USD)", p.PriceUSD)
	line("Price (CRC)", p.PriceCRC)
	line("Image", p.Image)
	line("Description", p.Description)
	return sb.String()
}
