package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"printful-bridge/internal/catalog"
	"printful-bridge/internal/model"
	"printful-bridge/internal/printful"
	"printful-bridge/internal/shipping"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(&fakeServices{}, Options{})
	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo": map[string]string{
				"name":    "test-client",
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Error("Expected result in response")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, mux := testHandler(&fakeServices{}, Options{})
	sessionID := initMCPSession(t, mux)

	resp := mcpCall(t, mux, sessionID, jsonrpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"search_catalog":   false,
		"list_categories":  false,
		"get_min_price":    false,
		"quote_shipping":   false,
		"get_order_status": false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPSearchCatalog(t *testing.T) {
	var got catalog.Query
	f := &fakeServices{productsFn: func(q catalog.Query) catalog.Page {
		got = q
		return catalog.Page{Products: []catalog.Product{{ID: 71, Title: "Unisex Staple T-Shirt"}}}
	}}
	_, mux := testHandler(f, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "search_catalog", map[string]interface{}{
		"limit":        500,
		"category_ids": []int64{24, 6, 24},
		"techniques":   []string{"dtg"},
	})
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}

	if got.Limit != catalog.MaxLimit {
		t.Errorf("Limit = %d, want %d", got.Limit, catalog.MaxLimit)
	}
	if len(got.CategoryIDs) != 2 {
		t.Errorf("CategoryIDs = %v, want 2 distinct", got.CategoryIDs)
	}

	var page productsResponse
	if err := json.Unmarshal([]byte(result.Content[0].Text), &page); err != nil {
		t.Fatalf("Failed to parse products from result: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].ID != 71 {
		t.Errorf("Products = %+v", page.Products)
	}
	if !page.Done {
		t.Error("Done = false, want true for a short page")
	}
}

func TestMCPMinPrice(t *testing.T) {
	f := &fakeServices{minPriceFn: func(id int64, currency, region string) (float64, bool) {
		return 11.25, id == 71
	}}
	_, mux := testHandler(f, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_min_price", map[string]interface{}{"product_id": 71, "currency": "eur"})
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	var resp minPriceResponse
	if err := json.Unmarshal([]byte(result.Content[0].Text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Price == nil || *resp.Price != 11.25 || resp.Currency != "EUR" {
		t.Errorf("min price = %+v", resp)
	}

	result = callTool(t, mux, sessionID, "get_min_price", map[string]interface{}{"product_id": 0})
	if !result.IsError {
		t.Error("Expected error for missing product_id")
	}
}

func TestMCPQuoteShipping(t *testing.T) {
	var got shipping.Package
	f := &fakeServices{calculateFn: func(pkg shipping.Package) []shipping.Rate {
		got = pkg
		return []shipping.Rate{{ID: "printful_live:STANDARD", Label: "Flat Rate", Cost: 7.95, ServiceCode: "STANDARD"}}
	}}
	_, mux := testHandler(f, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "quote_shipping", map[string]interface{}{
		"lines":   []map[string]interface{}{{"variant_id": 4012, "quantity": 2}},
		"country": "AU",
		"state":   "NSW",
	})
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	if len(got.Lines) != 1 || got.Lines[0].PFItem != 1 || got.Lines[0].Quantity != 2 {
		t.Errorf("Lines = %+v", got.Lines)
	}

	var resp ratesResponse
	json.Unmarshal([]byte(result.Content[0].Text), &resp)
	if len(resp.Rates) != 1 || resp.Rates[0].ServiceCode != "STANDARD" {
		t.Errorf("Rates = %+v", resp.Rates)
	}

	result = callTool(t, mux, sessionID, "quote_shipping", map[string]interface{}{
		"lines":   []map[string]interface{}{{"variant_id": 4012, "quantity": 1}},
		"country": "Australia",
	})
	if !result.IsError {
		t.Error("Expected validation error for bad country")
	}
	if len(result.Content) > 0 && !strings.Contains(result.Content[0].Text, "validation_error") {
		t.Errorf("error text = %q, want validation_error", result.Content[0].Text)
	}
}

func TestMCPOrderStatus(t *testing.T) {
	var gotID string
	f := &fakeServices{getOrderFn: func(id string) (*printful.Order, error) {
		gotID = id
		if id == "@wc-100" {
			return &printful.Order{ID: 555, ExternalID: "wc-100", Status: "pending"}, nil
		}
		return nil, model.NewNotFoundError("Printful resource")
	}}
	_, mux := testHandler(f, Options{})
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_order_status", map[string]interface{}{"order_id": "@wc-100"})
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	if gotID != "@wc-100" {
		t.Errorf("order id = %q, want @wc-100", gotID)
	}
	var o printful.Order
	json.Unmarshal([]byte(result.Content[0].Text), &o)
	if o.Status != "pending" {
		t.Errorf("Status = %q, want pending", o.Status)
	}

	tests := []struct {
		name    string
		orderID string
		wantMsg string
	}{
		{"not found", "999", "not_found"},
		{"malformed", "abc", "numeric"},
		{"missing", "", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, mux, sessionID, "get_order_status", map[string]interface{}{"order_id": tt.orderID})
			if !result.IsError {
				t.Fatal("Expected error result")
			}
			if len(result.Content) == 0 || !strings.Contains(result.Content[0].Text, tt.wantMsg) {
				t.Errorf("error content = %+v, want %q", result.Content, tt.wantMsg)
			}
		})
	}
}

func TestMCPUnconfigured(t *testing.T) {
	h := New(Deps{}, Options{}, nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "list_categories", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("Expected error result")
	}
	if !strings.Contains(result.Content[0].Text, "config_error") {
		t.Errorf("error text = %q, want config_error", result.Content[0].Text)
	}
}

// mcpCall posts one JSON-RPC request and decodes the response.
func mcpCall(t *testing.T, mux *http.ServeMux, sessionID string, req jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	return resp
}

// callTool invokes a tool and returns its result.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args interface{}) callToolResult {
	t.Helper()

	raw, _ := json.Marshal(args)
	resp := mcpCall(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      3,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: raw},
	})
	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}
