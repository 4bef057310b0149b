// Command dashboard is the terminal client. It logs in, renders the market
// overview and the user's portfolio from the local cache, and keeps the
// portfolio fresh in the background until interrupted.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tickerdesk/tickerdesk/internal/client"
	"github.com/tickerdesk/tickerdesk/internal/clientcache"
	"github.com/tickerdesk/tickerdesk/internal/config"
	"github.com/tickerdesk/tickerdesk/internal/scheduler"
	"github.com/tickerdesk/tickerdesk/pkg/logger"
)

func main() {
	email := flag.String("email", os.Getenv("TICKERDESK_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("TICKERDESK_PASSWORD"), "account password")
	symbol := flag.String("symbol", "", "show a single stock instead of the dashboard")
	shares := flag.Int64("shares", -1, "with -symbol: record how many shares are held")
	invested := flag.Float64("invested", -1, "with -symbol: record the amount invested")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	if *email == "" || *password == "" {
		reader := bufio.NewReader(os.Stdin)
		if *email == "" {
			fmt.Print("Email: ")
			line, _ := reader.ReadString('\n')
			*email = strings.TrimSpace(line)
		}
		if *password == "" {
			fmt.Print("Password: ")
			line, _ := reader.ReadString('\n')
			*password = strings.TrimSpace(line)
		}
	}

	store, err := clientcache.OpenSQLiteStore(filepath.Join(cfg.DataDir, "cache.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache store")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.NewAPI(cfg.APIBaseURL, log)
	session, err := client.NewSession(ctx, api, store, *email, *password, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}
	fmt.Printf("Logged in as %s <%s>\n\n", session.Name, session.Email)

	holdings, err := client.OpenHoldingsStore(filepath.Join(cfg.DataDir, "holdings.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open holdings store")
	}
	defer holdings.Close()

	cache := clientcache.New(store, log)
	views := client.NewViews(api, cache, holdings, log)

	if *symbol != "" && (*shares >= 0 || *invested >= 0) {
		if err := editHolding(holdings, *symbol, *shares, *invested); err != nil {
			log.Fatal().Err(err).Msg("Failed to update holding")
		}
		fmt.Printf("Recorded holding for %s\n\n", strings.ToUpper(*symbol))
	}

	// A rejected token ends the session: wipe the cache and stop polling.
	onUnauthorized := func() {
		if err := session.Teardown(); err != nil {
			log.Error().Err(err).Msg("Teardown failed")
		}
		cancel()
	}

	sched := scheduler.New(log)
	if err := sched.AddJob("@every 5m", client.NewPollJob(ctx, views, onUnauthorized, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register poll job")
	}
	if err := sched.AddJob("@daily", clientcache.NewCleanupJob(store, 7*24*time.Hour, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	if *symbol != "" {
		renderStock(ctx, views, *symbol)
	} else {
		renderDashboard(ctx, views)
		renderPortfolio(ctx, views)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	fmt.Println("\nBye.")
}

// editHolding records an edit action for one position. A flag left at its
// default keeps the previously stored value, falling back to one share with
// no recorded cost.
func editHolding(holdings *client.HoldingsStore, symbol string, shares int64, invested float64) error {
	all, err := holdings.All()
	if err != nil {
		return err
	}

	current, ok := all[strings.ToUpper(symbol)]
	if !ok {
		current = client.Holding{Shares: 1, Invested: decimal.Zero}
	}
	if shares >= 0 {
		current.Shares = shares
	}
	if invested >= 0 {
		current.Invested = decimal.NewFromFloat(invested)
	}
	return holdings.Set(symbol, current.Shares, current.Invested)
}

func renderDashboard(ctx context.Context, views *client.Views) {
	view, err := views.Dashboard(ctx)
	if err != nil {
		fmt.Println("Dashboard unavailable:", err)
		return
	}

	var sections map[string][]struct {
		Symbol        string  `json:"symbol"`
		Name          string  `json:"name"`
		Price         float64 `json:"price"`
		ChangePercent float64 `json:"changesPercentage"`
	}
	if err := json.Unmarshal(view.Data, &sections); err != nil {
		fmt.Println("Failed to decode dashboard:", err)
		return
	}

	title := "Market overview"
	if view.Stale {
		title += " (stale)"
	}
	fmt.Println(title)

	for _, name := range []string{"top_gainers", "top_losers", "most_active"} {
		fmt.Printf("  %s:\n", strings.ReplaceAll(name, "_", " "))
		for i, q := range sections[name] {
			if i >= 5 {
				break
			}
			fmt.Printf("    %-6s %10.2f  %+.2f%%\n", q.Symbol, q.Price, q.ChangePercent)
		}
	}
	fmt.Println()
}

func renderPortfolio(ctx context.Context, views *client.Views) {
	view, err := views.Portfolio(ctx)
	if err != nil {
		fmt.Println("Portfolio unavailable:", err)
		return
	}

	totals, err := views.Totals(view)
	if err != nil {
		fmt.Println("Failed to compute portfolio totals:", err)
		return
	}
	if totals.Positions == 0 {
		fmt.Println("No stocks in portfolio")
		return
	}

	title := "Portfolio"
	if view.Stale {
		title += " (stale)"
	}
	fmt.Printf("%s: %d positions, value %s, cost %s, gain %s, day change %s\n",
		title, totals.Positions, totals.TotalValue.StringFixed(2), totals.TotalCost.StringFixed(2),
		totals.Gain.StringFixed(2), totals.TotalChange.StringFixed(2))
}

func renderStock(ctx context.Context, views *client.Views, symbol string) {
	view, err := views.Stock(ctx, strings.ToUpper(symbol))
	if err != nil {
		fmt.Println("Stock unavailable:", err)
		return
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(view.Data, &pretty); err != nil {
		fmt.Println(string(view.Data))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
	if view.Stale {
		fmt.Println("(stale)")
	}
}
