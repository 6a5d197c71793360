// pfctl is a CLI for operating and exercising a running Printful bridge.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	pfctl products [-category IDS] [-offset N] [-limit N] [-technique IDS]
//	pfctl categories [-force]
//	pfctl price -product ID [-currency CUR] [-region R]
//	pfctl rates -variant ID [-qty N] -country CC [-state S] [-postcode P]
//	pfctl webhook subscribe|status|clear
//	pfctl cache-clear
//	pfctl queue
//	pfctl shopper -user ID [-session S]
//	pfctl woo-event -order ID [-status processing]
//
// Examples:
//
//	pfctl products -bridge http://localhost:8080 -category 24 -limit 4
//	PRICE=$(pfctl price -product 71 -q)
//	curl -H "PF-Shopper: $(pfctl shopper -user 42 -session abc)" http://localhost:8080/cart
//	pfctl woo-event -order 1234 -status processing
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"printful-bridge/internal/shopper"
	"printful-bridge/internal/woocommerce"
)

var client = &http.Client{Timeout: 60 * time.Second}

// Global flags (apply to all commands)
var (
	bridgeURL  string
	adminToken string
	quiet      bool
	noColor    bool
	verbose    bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	// Pick up ADMIN_TOKEN and the signing secrets from a local .env.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "products":
		runProducts(args)
	case "categories":
		runCategories(args)
	case "price":
		runPrice(args)
	case "rates":
		runRates(args)
	case "webhook":
		runWebhook(args)
	case "cache-clear":
		runCacheClear(args)
	case "queue":
		runQueue(args)
	case "shopper":
		runShopper(args)
	case "woo-event":
		runWooEvent(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pfctl - Printful bridge operator tool

Usage:
  pfctl <command> [options]

Commands:
  products     List a catalog page with minimum prices
  categories   List categories with breadcrumb labels
  price        Show one product's minimum price
  rates        Quote live shipping for a variant
  webhook      Subscribe, inspect or clear the Printful webhook (admin)
  cache-clear  Drop cached catalog pages and prices (admin)
  queue        List pending order confirmations (admin)
  shopper      Print a PF-Shopper header value
  woo-event    Send a signed WooCommerce order.updated event

Environment:
  PFCTL_BRIDGE_URL    default for -bridge
  ADMIN_TOKEN         default for -admin-token
  SHOPPER_SECRET      signs shopper headers
  WOO_WEBHOOK_SECRET  signs woo-event bodies

Run 'pfctl <command> -h' for command-specific options.
`)
}

// newFlagSet registers the flags every command shares.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&bridgeURL, "bridge", envOr("PFCTL_BRIDGE_URL", "http://localhost:8080"), "Bridge base URL")
	fs.StringVar(&adminToken, "admin-token", os.Getenv("ADMIN_TOKEN"), "Admin API bearer token")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the essential value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pfctl %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
	bridgeURL = strings.TrimSuffix(bridgeURL, "/")
}

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

func runProducts(args []string) {
	fs := newFlagSet("products", "products [-category IDS] [-offset N] [-limit N] [options]")
	var categories, techniques, colors string
	var offset, limit int
	fs.StringVar(&categories, "category", "", "Comma-separated category ids")
	fs.StringVar(&techniques, "technique", "", "Comma-separated technique ids")
	fs.StringVar(&colors, "color", "", "Comma-separated color ids")
	fs.IntVar(&offset, "offset", 0, "Index of the first product")
	fs.IntVar(&limit, "limit", 0, "Page size (bridge default when 0)")
	parse(fs, args)

	q := url.Values{}
	setIf(q, "category_ids", categories)
	setIf(q, "techniques", techniques)
	setIf(q, "colors", colors)
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := doRequest("GET", "/catalog/products?"+q.Encode(), nil, false)
	if err != nil {
		fatal("Failed to list products: %v", err)
	}

	products, _ := resp["products"].([]interface{})
	for _, p := range products {
		pm, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if quiet {
			fmt.Println(formatID(pm["id"]))
			continue
		}
		fmt.Printf("  %s%-6s%s %-50s %s\n", colorCyan, formatID(pm["id"]), colorReset, pm["title"], formatPrice(pm["price"]))
	}
	if !quiet {
		done, _ := resp["done"].(bool)
		if done {
			printSuccess("%d products, end of list", len(products))
		} else {
			printSuccess("%d products, next offset %s", len(products), formatID(resp["next_offset"]))
		}
	}
}

func runCategories(args []string) {
	fs := newFlagSet("categories", "categories [-force] [options]")
	var force bool
	fs.BoolVar(&force, "force", false, "Bypass the category cache")
	parse(fs, args)

	path := "/catalog/categories"
	if force {
		path += "?force=1"
	}
	resp, err := doRequest("GET", path, nil, false)
	if err != nil {
		fatal("Failed to list categories: %v", err)
	}

	paths, _ := resp["paths"].([]interface{})
	for _, p := range paths {
		pm, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Printf("%s%6s%s  %s\n", colorCyan, formatID(pm["id"]), colorReset, pm["label"])
	}
}

func runPrice(args []string) {
	fs := newFlagSet("price", "price -product ID [-currency CUR] [-region R] [options]")
	var productID int64
	var currency, region string
	fs.Int64Var(&productID, "product", 0, "Catalog product id (required)")
	fs.StringVar(&currency, "currency", "", "Currency code (store default if empty)")
	fs.StringVar(&region, "region", "", "Selling region (store default if empty)")
	parse(fs, args)

	if productID <= 0 {
		fs.Usage()
		os.Exit(1)
	}

	q := url.Values{}
	setIf(q, "currency", currency)
	setIf(q, "region", region)
	path := fmt.Sprintf("/catalog/products/%d/min-price", productID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := doRequest("GET", path, nil, false)
	if err != nil {
		fatal("Failed to get price: %v", err)
	}

	if quiet {
		if resp["price"] != nil {
			fmt.Println(formatPrice(resp["price"]))
		}
		return
	}
	if resp["price"] == nil {
		printWarning("No price known for product %d", productID)
		return
	}
	printSuccess("Minimum price %s %s", formatPrice(resp["price"]), resp["currency"])
	if resp["retail"] != nil {
		fmt.Printf("  Retail: %s%s%s\n", colorGreen, formatPrice(resp["retail"]), colorReset)
	}
}

func runRates(args []string) {
	fs := newFlagSet("rates", "rates -variant ID -country CC [options]")
	var variantID int64
	var qty int
	var country, state, postcode, city string
	fs.Int64Var(&variantID, "variant", 0, "Catalog variant id (required)")
	fs.IntVar(&qty, "qty", 1, "Quantity")
	fs.StringVar(&country, "country", "", "Destination country code (required)")
	fs.StringVar(&state, "state", "", "Destination state code")
	fs.StringVar(&city, "city", "", "Destination city")
	fs.StringVar(&postcode, "postcode", "", "Destination postcode")
	parse(fs, args)

	if variantID <= 0 || country == "" {
		fs.Usage()
		os.Exit(1)
	}

	body := map[string]interface{}{
		"lines": []map[string]interface{}{
			{"pf_item": 1, "variant_id": variantID, "quantity": qty},
		},
		"destination": map[string]string{
			"country":  strings.ToUpper(country),
			"state":    state,
			"city":     city,
			"postcode": postcode,
		},
	}
	resp, err := doRequest("POST", "/shipping/rates", body, false)
	if err != nil {
		fatal("Failed to quote shipping: %v", err)
	}

	rates, _ := resp["rates"].([]interface{})
	if len(rates) == 0 {
		printWarning("No Printful rates for this package")
		return
	}
	for _, r := range rates {
		rm, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Printf("  %s%-30s%s %-40s %s\n", colorCyan, rm["id"], colorReset, rm["label"], formatPrice(rm["cost"]))
	}
}

// =============================================================================
// ADMIN COMMANDS
// =============================================================================

func runWebhook(args []string) {
	if len(args) == 0 {
		fatal("Usage: pfctl webhook subscribe|status|clear [options]")
	}
	action := args[0]
	fs := newFlagSet("webhook "+action, "webhook subscribe|status|clear [options]")
	parse(fs, args[1:])

	switch action {
	case "subscribe":
		resp, err := doRequest("POST", "/admin/webhooks", nil, true)
		if err != nil {
			fatal("Failed to subscribe: %v", err)
		}
		printSuccess("Webhook registered at %s", resp["default_url"])
	case "status":
		resp, err := doRequest("GET", "/admin/webhooks", nil, true)
		if err != nil {
			fatal("Failed to get webhook status: %v", err)
		}
		if quiet {
			return
		}
		fmt.Printf("  URL:    %s\n", resp["default_url"])
		if masked, ok := resp["secret_masked"].(string); ok && masked != "" {
			fmt.Printf("  Secret: %s\n", masked)
		} else {
			printWarning("No signing secret stored")
		}
		if rerr, ok := resp["remote_error"].(string); ok && rerr != "" {
			printWarning("Remote lookup failed: %s", rerr)
		}
	case "clear":
		if _, err := doRequest("DELETE", "/admin/webhooks/keys", nil, true); err != nil {
			fatal("Failed to clear keys: %v", err)
		}
		printSuccess("Stored webhook keys cleared")
	default:
		fatal("Unknown webhook action: %s", action)
	}
}

func runCacheClear(args []string) {
	fs := newFlagSet("cache-clear", "cache-clear [options]")
	parse(fs, args)

	resp, err := doRequest("POST", "/admin/cache/clear", nil, true)
	if err != nil {
		fatal("Failed to clear cache: %v", err)
	}
	if quiet {
		fmt.Println(formatID(resp["cleared"]))
		return
	}
	printSuccess("Cleared %s cache entries", formatID(resp["cleared"]))
}

func runQueue(args []string) {
	fs := newFlagSet("queue", "queue [options]")
	parse(fs, args)

	resp, err := doRequest("GET", "/admin/confirmations", nil, true)
	if err != nil {
		fatal("Failed to list confirmations: %v", err)
	}

	jobs, _ := resp["jobs"].([]interface{})
	if len(jobs) == 0 {
		printSuccess("No pending confirmations")
		return
	}
	for _, j := range jobs {
		jm, ok := j.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Printf("  %s%-12s%s attempt %-3s due %s", colorCyan, formatID(jm["remote_order_id"]), colorReset,
			formatID(jm["attempt"]), jm["not_before"])
		if last, ok := jm["last_error"].(string); ok && last != "" {
			fmt.Printf("  %s%s%s", colorGray, last, colorReset)
		}
		fmt.Println()
	}
}

// =============================================================================
// TEST HELPERS
// =============================================================================

func runShopper(args []string) {
	fs := newFlagSet("shopper", "shopper -user ID [-session S] [-secret S]")
	var userID int64
	var session, secret string
	fs.Int64Var(&userID, "user", 0, "Storefront user id (0 = guest)")
	fs.StringVar(&session, "session", "", "Cart session id")
	fs.StringVar(&secret, "secret", os.Getenv("SHOPPER_SECRET"), "Shopper signing secret")
	parse(fs, args)

	value, err := shopper.Format(shopper.Identity{UserID: userID, SessionID: session}, secret)
	if err != nil {
		fatal("Failed to format header: %v", err)
	}
	fmt.Println(value)
}

func runWooEvent(args []string) {
	fs := newFlagSet("woo-event", "woo-event -order ID [-status S] [-secret S] [options]")
	var orderID int64
	var status, secret string
	fs.Int64Var(&orderID, "order", 0, "WooCommerce order id (required)")
	fs.StringVar(&status, "status", "processing", "Order status to report")
	fs.StringVar(&secret, "secret", os.Getenv("WOO_WEBHOOK_SECRET"), "WooCommerce webhook secret")
	parse(fs, args)

	if orderID <= 0 || secret == "" {
		fs.Usage()
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]interface{}{"id": orderID, "status": status})
	headers := map[string]string{
		woocommerce.HeaderSignature: woocommerce.Sign(body, secret),
		woocommerce.HeaderTopic:     "order.updated",
	}
	resp, err := send("POST", "/webhooks/woocommerce", body, headers)
	if err != nil {
		fatal("Failed to deliver event: %v", err)
	}

	outcome, _ := resp["outcome"].(string)
	if quiet {
		fmt.Println(outcome)
		return
	}
	if ok, _ := resp["ok"].(bool); ok {
		printSuccess("Order %d: %s", orderID, outcome)
	} else {
		printWarning("Order %d: %s", orderID, outcome)
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func doRequest(method, path string, body interface{}, admin bool) (map[string]interface{}, error) {
	var reqJSON []byte
	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if admin {
		if adminToken == "" {
			return nil, fmt.Errorf("admin token required (-admin-token or ADMIN_TOKEN)")
		}
		headers["Authorization"] = "Bearer " + adminToken
	}
	return send(method, path, reqJSON, headers)
}

func send(method, path string, body []byte, headers map[string]string) (map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, bridgeURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if !quiet {
		printRequest(method, path, body)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet && verbose {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	result := map[string]interface{}{}
	if len(respBody) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return result, nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	if !verbose {
		return
	}
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(pretty.String())
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func formatPrice(v interface{}) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', 2, 64)
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatID prints JSON numbers without a fraction.
func formatID(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%v", v)
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
