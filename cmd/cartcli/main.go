// cartcli is a CLI tool for exercising storefront cart flows.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	cartcli show -store URL
//	cartcli add -store URL -variant ID [-qty N]
//	cartcli change -store URL -line N -qty N
//	cartcli remove -store URL -line N
//	cartcli note -store URL -text "message"
//	cartcli product -store URL -id ID
//
// Examples:
//
//	cartcli add -store https://shop.example.com -variant 44738297364722 -qty 2
//	cartcli change -store https://shop.example.com -line 1 -qty 5
//	cartcli show -store https://shop.example.com -v
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cart-engine/internal/model"
	"cart-engine/internal/storefront"
)

// Global flags (apply to all commands)
var (
	storeURL string
	quiet    bool
	noColor  bool
	verbose  bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen = "", "", ""
	colorYellow, colorCyan, colorGray = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "show":
		runShow(args)
	case "add":
		runAdd(args)
	case "change":
		runChange(args)
	case "remove":
		runRemove(args)
	case "note":
		runNote(args)
	case "product":
		runProduct(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartcli - storefront cart test tool

Usage:
  cartcli <command> [options]

Commands:
  show      Show the current cart
  add       Add a variant to the cart
  change    Change a cart line's quantity
  remove    Remove a cart line
  note      Set the cart note
  product   Look up a product and its variants

Examples:
  # Add two units of a variant
  cartcli add -store https://shop.example.com -variant 44738297364722 -qty 2

  # Change line 1 to five units
  cartcli change -store https://shop.example.com -line 1 -qty 5

  # Remove line 1
  cartcli remove -store https://shop.example.com -line 1

  # Inspect a product
  cartcli product -store https://shop.example.com -id modern-widget

Run 'cartcli <command> -h' for command-specific options.
`)
}

// newFlagSet creates a flag set carrying the global flags every command takes.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&storeURL, "store", os.Getenv("STORE_URL"), "Storefront base URL (or STORE_URL env)")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - minimal output")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// newClient validates the global flags and builds the storefront client.
func newClient() *storefront.Client {
	if noColor {
		disableColors()
	}
	if storeURL == "" {
		fatal("-store is required (or set STORE_URL)")
	}
	client, err := storefront.New(storefront.Config{StoreURL: storeURL})
	if err != nil {
		fatal("Invalid store URL: %v", err)
	}
	return client
}

func cliContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func runShow(args []string) {
	fs := newFlagSet("show", "cartcli show [options]")
	fs.Parse(args)
	client := newClient()

	ctx, cancel := cliContext()
	defer cancel()

	cart, err := client.GetCart(ctx)
	if err != nil {
		fatal("Failed to fetch cart: %v", err)
	}
	printCart(cart)
}

func runAdd(args []string) {
	fs := newFlagSet("add", "cartcli add -variant <id> [options]")
	var variantID int64
	var qty int
	fs.Int64Var(&variantID, "variant", 0, "Variant ID (required)")
	fs.IntVar(&qty, "qty", 1, "Quantity to add")
	fs.Parse(args)
	client := newClient()

	if variantID == 0 {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := cliContext()
	defer cancel()

	cart, err := client.AddItems(ctx, storefront.AddRequest{
		Items: []model.AddItem{{ID: variantID, Quantity: qty}},
	})
	if err != nil {
		fatal("Failed to add to cart: %v", err)
	}

	printSuccess("Added variant %d x%d", variantID, qty)
	printCart(cart)
}

func runChange(args []string) {
	fs := newFlagSet("change", "cartcli change -line <n> -qty <n> [options]")
	var line, qty int
	fs.IntVar(&line, "line", 0, "1-based cart line (required)")
	fs.IntVar(&qty, "qty", -1, "New quantity (required; 0 removes the line)")
	fs.Parse(args)
	client := newClient()

	if line < 1 || qty < 0 {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := cliContext()
	defer cancel()

	cart, err := client.ChangeCart(ctx, storefront.ChangeRequest{Line: line, Quantity: qty})
	if err != nil {
		fatal("Failed to change cart: %v", err)
	}
	if cart.Errors != "" {
		fatal("Store rejected the change: %s", cart.Errors)
	}

	printSuccess("Line %d set to %d", line, qty)
	printCart(cart)
}

func runRemove(args []string) {
	fs := newFlagSet("remove", "cartcli remove -line <n> [options]")
	var line int
	fs.IntVar(&line, "line", 0, "1-based cart line (required)")
	fs.Parse(args)
	client := newClient()

	if line < 1 {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := cliContext()
	defer cancel()

	cart, err := client.ChangeCart(ctx, storefront.ChangeRequest{Line: line, Quantity: 0})
	if err != nil {
		fatal("Failed to remove line: %v", err)
	}

	printSuccess("Line %d removed", line)
	printCart(cart)
}

func runNote(args []string) {
	fs := newFlagSet("note", "cartcli note -text <message> [options]")
	var text string
	fs.StringVar(&text, "text", "", "Note text (required)")
	fs.Parse(args)
	client := newClient()

	if text == "" {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := cliContext()
	defer cancel()

	if err := client.UpdateNote(ctx, text); err != nil {
		fatal("Failed to set note: %v", err)
	}
	printSuccess("Note saved")
}

func runProduct(args []string) {
	fs := newFlagSet("product", "cartcli product -id <id-or-handle> [options]")
	var id string
	fs.StringVar(&id, "id", "", "Product ID or handle (required)")
	fs.Parse(args)
	client := newClient()

	if id == "" {
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := cliContext()
	defer cancel()

	product, err := client.GetProduct(ctx, id)
	if err != nil {
		fatal("Failed to fetch product: %v", err)
	}

	if quiet {
		fmt.Println(product.ID)
		return
	}

	printSuccess("Product %d: %s", product.ID, product.Title)
	for _, v := range product.Variants {
		marker := colorGreen + "in stock" + colorReset
		if !v.Available {
			marker = colorRed + "sold out" + colorReset
		}
		fmt.Printf("  %d  %s%-20s%s $%s  %s\n",
			v.ID, colorCyan, v.Title, colorReset,
			model.FormatPrice(float64(v.Price)/100), marker)
	}
	if verbose {
		dumpJSON(product)
	}
}

// printCart renders a cart snapshot: one line per item plus the totals.
func printCart(cart *model.CartState) {
	if quiet {
		fmt.Println(cart.ItemCount)
		return
	}

	if cart.ItemCount == 0 {
		fmt.Printf("%sCart is empty%s\n", colorGray, colorReset)
	}
	for i, item := range cart.Items {
		fmt.Printf("  %d. %s%s%s  x%d  $%s\n",
			i+1, colorCyan, item.ProductTitle, colorReset,
			item.Quantity, model.FormatPrice(float64(item.Price)/100))
	}
	if cart.Note != "" {
		fmt.Printf("  %sNote:%s %s\n", colorYellow, colorReset, cart.Note)
	}
	if cart.ItemCount > 0 {
		fmt.Printf("  Total: %s$%s%s (%d items)\n",
			colorGreen, model.FormatPrice(float64(cart.TotalPrice)/100), colorReset, cart.ItemCount)
	}
	if verbose {
		dumpJSON(cart)
	}
}

// dumpJSON pretty-prints a response payload, truncated unless -v asked for
// everything.
func dumpJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "  ", "  "); err != nil {
		fmt.Printf("  %s\n", string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("  %s(%d more lines, use -v for full output)%s", colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println("  " + output)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
