package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stock2coat/pkg/logger"
	"stock2coat/pkg/stockclient"

	"github.com/google/uuid"
)

// Small operator tool: log in, mirror the inventory, and register one
// consumption through the optimistic reconciliation layer.
func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:3000", "API base URL")
		email    = flag.String("email", "", "login email")
		password = flag.String("password", "", "login password")
		itemID   = flag.String("item", "", "inventory item ID (empty: list items)")
		quantity = flag.Float64("quantity", 0, "quantity to consume")
		order    = flag.String("order", "", "project/order reference")
		note     = flag.String("note", "", "free-text note")
		wait     = flag.Duration("wait", 2*time.Second, "how long to wait for the change feed to corroborate")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "email and password are required")
		os.Exit(1)
	}

	zlog := logger.Must(logger.New())
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := stockclient.New(*baseURL, logger.Named(zlog, "client"))
	if err := client.Login(ctx, *email, *password); err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		os.Exit(1)
	}

	items, err := client.GetItems(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to fetch items:", err)
		os.Exit(1)
	}

	store := stockclient.NewStore()
	store.Load(items)

	if *itemID == "" {
		for _, item := range items {
			fmt.Printf("%s  %-10s %-20s %8.1f %s  [%s]\n",
				item.ID, item.RALCode, item.Brand, item.CurrentStock, item.Unit, item.Status)
		}
		return
	}

	id, err := uuid.Parse(*itemID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid item ID:", err)
		os.Exit(1)
	}

	wsURL := websocketURL(*baseURL)
	listener := stockclient.NewListener(wsURL, store, logger.Named(zlog, "feed"))
	go listener.Run(ctx)

	consumer := stockclient.NewConsumer(store, client, logger.Named(zlog, "consumer"))
	result, err := consumer.Consume(ctx, id, *quantity, *order, *note)
	if err != nil {
		fmt.Fprintln(os.Stderr, "verbruik mislukt:", err)
		os.Exit(1)
	}

	mode := "atomic"
	if !result.Atomic {
		mode = "best-effort (fallback)"
	}
	fmt.Printf("Verbruik geregistreerd (%s): %s %.1f -> %.1f [%s]\n",
		mode, result.ItemCode, result.PreviousStock, result.NewStock, result.NewStatus)

	// Give the feed a moment to deliver the authoritative row.
	time.Sleep(*wait)
	if item, ok := store.Get(id); ok {
		fmt.Printf("Lokale spiegel: %.1f %s [%s]\n", item.CurrentStock, item.Unit, item.Status)
	}
}

func websocketURL(baseURL string) string {
	switch {
	case len(baseURL) > 8 && baseURL[:8] == "https://":
		return "wss://" + baseURL[8:] + "/ws"
	case len(baseURL) > 7 && baseURL[:7] == "http://":
		return "ws://" + baseURL[7:] + "/ws"
	default:
		return baseURL + "/ws"
	}
}
