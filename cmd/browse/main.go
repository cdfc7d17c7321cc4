package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/way7creation/catalogx"
	"github.com/way7creation/catalogx/httpapi"
	"github.com/way7creation/catalogx/internal/metrics"
	"github.com/way7creation/catalogx/memfetch"
	"github.com/way7creation/catalogx/prefs"
	"github.com/way7creation/catalogx/render"
)

const (
	defaultTimeout    = 30 * time.Second
	enrichGracePeriod = 5 * time.Second
)

func main() {
	_ = godotenv.Load()

	if os.Getenv("CATALOG_LOG_JSON") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}

	app := &cli.App{
		Name:  "browse",
		Usage: "Browse a product catalog from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Usage:   "Base URL of the catalog API",
				EnvVars: []string{"CATALOG_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "city",
				Usage:   "City ID for availability and pricing",
				EnvVars: []string{"CATALOG_CITY_ID"},
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Search text; positional arg is a fallback",
			},
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Page to open (1-indexed)",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Results per page (10, 20, 50 or 100)",
			},
			&cli.StringFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Usage:   "Sort key: relevance, name, external_id, price_asc, price_desc, availability, popularity",
			},
			&cli.StringSliceFlag{
				Name:  "filter",
				Usage: "Filter in name=value format; repeatable",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the whole browse request",
				Value: defaultTimeout,
			},
			&cli.StringFlag{
				Name:    "state-file",
				Usage:   "Path of the JSON file persisting browse state between runs",
				EnvVars: []string{"CATALOG_STATE_FILE"},
			},
			&cli.StringFlag{
				Name:    "state-table",
				Usage:   "DynamoDB table persisting browse state; overrides state-file",
				EnvVars: []string{"CATALOG_STATE_TABLE"},
			},
			&cli.StringFlag{
				Name:    "state-user",
				Usage:   "User ID keying the DynamoDB state record",
				EnvVars: []string{"CATALOG_STATE_USER"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "credentials-secret-arn",
				Usage:   "ARN of an AWS Secrets Manager secret containing the API key",
				EnvVars: []string{"CATALOG_SECRET_ARN"},
			},
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Browse a built-in sample catalog instead of a remote API",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Address to expose Prometheus metrics on for the duration of the run",
				EnvVars: []string{"CATALOG_METRICS_ADDR"},
			},
		},
		Action: browseAction,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a product to the cart",
				ArgsUsage: "<product-id> [quantity]",
				Action:    addAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func browseAction(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	fetcher, loader, err := buildBackend(ctx, c)
	if err != nil {
		return err
	}

	store, err := buildStore(ctx, c)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(nil)
	if addr := c.String("metrics-addr"); addr != "" {
		go serveMetrics(addr, collector)
	}

	initial, err := initialState(ctx, c, store)
	if err != nil {
		return err
	}

	waiter := &waitingLoader{inner: loader, done: make(chan struct{}, 1)}

	// The renderer snapshots the controller it renders for, so it gets
	// a late-bound view of the controller built right after it.
	var controller *catalogx.Controller
	table := render.NewTable(os.Stdout, catalogx.ViewFunc(func() (catalogx.QueryState, catalogx.ResultState) {
		return controller.Snapshot()
	}), slog.Default())

	controller = catalogx.New(fetcher,
		catalogx.WithInitialState(initial),
		catalogx.WithStateStore(store),
		catalogx.WithCity(c.String("city")),
		catalogx.WithRenderer(table),
		catalogx.WithNotifier(stderrNotifier{}),
		catalogx.WithAvailabilityLoader(waiter),
		catalogx.WithMetrics(collector),
	)

	query := strings.TrimSpace(c.String("query"))
	if query == "" && c.NArg() > 0 {
		query = strings.TrimSpace(c.Args().First())
	}

	if query != "" {
		controller.Submit(ctx, query)
	} else {
		controller.Refresh(ctx)
	}

	// Enrichment runs detached; give it a moment before exiting.
	if _, result := controller.Snapshot(); len(result.IDs()) > 0 {
		waiter.wait(enrichGracePeriod)
	}
	return nil
}

func buildBackend(ctx context.Context, c *cli.Context) (catalogx.Fetcher, catalogx.AvailabilityLoader, error) {
	if c.Bool("demo") {
		f := memfetch.New()
		f.Add(memfetch.SampleCatalog()...)
		return f, nil, nil
	}

	endpoint := strings.TrimSpace(c.String("endpoint"))
	if endpoint == "" {
		return nil, nil, fmt.Errorf("either --endpoint or --demo is required")
	}

	creds, err := buildCredentials(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	client := httpapi.NewClient(endpoint, httpapi.WithCredentials(creds))
	loader := httpapi.NewAvailabilityClient(client, c.String("city"), printAvailability)
	return client, loader, nil
}

func buildCredentials(ctx context.Context, c *cli.Context) (httpapi.FetchCredentials, error) {
	secretArn := strings.TrimSpace(c.String("credentials-secret-arn"))
	if secretArn == "" {
		return httpapi.EnvCredentials(), nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	secretsClient := secretsmanager.NewFromConfig(cfg)
	return httpapi.AWSCredentialsFromARN(ctx, secretsClient, secretArn), nil
}

func buildStore(ctx context.Context, c *cli.Context) (catalogx.StateStore, error) {
	if table := strings.TrimSpace(c.String("state-table")); table != "" {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return prefs.NewDynamoStore(dynamodb.NewFromConfig(cfg), table, c.String("state-user")), nil
	}
	if path := strings.TrimSpace(c.String("state-file")); path != "" {
		return prefs.NewFileStore(path), nil
	}
	return nil, nil
}

// initialState merges the persisted record with any flags the user set
// explicitly. Flags win.
func initialState(ctx context.Context, c *cli.Context, store catalogx.StateStore) (catalogx.PersistedState, error) {
	st := catalogx.DefaultPersistedState()
	if store != nil {
		loaded, err := store.Load(ctx)
		if err != nil {
			slog.WarnContext(ctx, "could not load persisted state; starting from defaults", "error", err)
		} else {
			st = loaded
		}
	}

	if c.IsSet("page") {
		st.Page = c.Int("page")
	}
	if c.IsSet("page-size") {
		size := c.Int("page-size")
		if !catalogx.ValidPageSize(size) {
			return st, fmt.Errorf("page-size must be one of %v", catalogx.PageSizes)
		}
		st.PageSize = size
	}
	if c.IsSet("sort") {
		key := catalogx.SortKey(c.String("sort"))
		if !key.Valid() {
			return st, fmt.Errorf("unknown sort key %q", key)
		}
		st.Sort = key
	}

	for _, item := range c.StringSlice("filter") {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return st, fmt.Errorf("filter must be in name=value format: %q", item)
		}
		if st.Filters == nil {
			st.Filters = map[string]string{}
		}
		st.Filters[name] = value
	}

	return st.Sanitize(), nil
}

func addAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: add <product-id> [quantity]")
	}
	productID, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", c.Args().Get(0))
	}
	quantity := 1
	if c.NArg() > 1 {
		quantity, err = strconv.Atoi(c.Args().Get(1))
		if err != nil {
			return fmt.Errorf("invalid quantity %q", c.Args().Get(1))
		}
	}

	endpoint := strings.TrimSpace(c.String("endpoint"))
	if endpoint == "" {
		return fmt.Errorf("--endpoint is required to add to cart")
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	creds, err := buildCredentials(ctx, c)
	if err != nil {
		return err
	}

	cart := httpapi.NewCartClient(httpapi.NewClient(endpoint, httpapi.WithCredentials(creds)))
	if err := cart.AddToCart(ctx, productID, quantity); err != nil {
		return fmt.Errorf("add to cart failed: %w", err)
	}

	fmt.Printf("added product %d x%d to cart\n", productID, quantity)
	return nil
}

func serveMetrics(addr string, collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}

func printAvailability(av map[int64]httpapi.Availability) {
	for id, a := range av {
		line := fmt.Sprintf("availability: product %d, qty %d", id, a.Quantity)
		if a.DeliveryText != "" {
			line += ", " + a.DeliveryText
		}
		fmt.Fprintln(os.Stderr, line)
	}
}

// stderrNotifier prints toast messages to stderr so they never mix
// with the rendered table on stdout.
type stderrNotifier struct{}

func (stderrNotifier) Toast(message string, isError bool) {
	prefix := "info"
	if isError {
		prefix = "error"
	}
	fmt.Fprintf(os.Stderr, "[%s] %s\n", prefix, message)
}

// waitingLoader wraps an AvailabilityLoader and signals completion so
// the one-shot CLI can wait for the detached enrichment to finish.
type waitingLoader struct {
	inner catalogx.AvailabilityLoader
	done  chan struct{}
}

func (w *waitingLoader) Enrich(ctx context.Context, productIDs []int64) error {
	defer func() {
		select {
		case w.done <- struct{}{}:
		default:
		}
	}()
	if w.inner == nil {
		return nil
	}
	return w.inner.Enrich(ctx, productIDs)
}

// wait blocks until one enrichment completes or the grace period ends.
func (w *waitingLoader) wait(grace time.Duration) {
	select {
	case <-w.done:
	case <-time.After(grace):
	}
}
