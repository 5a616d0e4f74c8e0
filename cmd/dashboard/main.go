// Terminal dashboard: logs in against the API and prints a table the
// same way the web dashboard renders it, one page at a time.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rgoncalves/marketdash/internal/client"
	"github.com/rgoncalves/marketdash/internal/client/tableview"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:4000", "API base URL")
		table    = flag.String("table", "customers", "dashboard table to render")
		email    = flag.String("email", os.Getenv("MARKETDASH_EMAIL"), "login email")
		password = flag.String("password", os.Getenv("MARKETDASH_PASSWORD"), "login password")
		all      = flag.Bool("all", false, "print every page instead of the first")
	)
	flag.Parse()

	tokens, err := client.NewFileTokenStore("")

	if err != nil {
		fmt.Fprintln(os.Stderr, "token store:", err)
		os.Exit(1)
	}

	api := client.New(*baseURL, tokens)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *email != "" && *password != "" {
		_, err := api.Login(ctx, *email, *password)

		if err != nil {
			fmt.Fprintln(os.Stderr, "login:", err)
			os.Exit(1)
		}
	}

	done := make(chan struct{}, 1)

	model := tableview.NewModel(api, tableview.DefaultPageSize, func() {
		done <- struct{}{}
	})

	model.SetTable(ctx, *table)

	select {
	case <-done:
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "fetch timed out")
		os.Exit(1)
	}

	if model.State() == tableview.StateError {
		fmt.Fprintln(os.Stderr, model.Err())
		os.Exit(1)
	}

	if *all {
		for model.VisibleCount() < model.Total() {
			model.LoadMore()
		}
	}

	printRows(*table, model)
}

func printRows(table string, model *tableview.Model) {
	rows := model.VisibleRows()

	fmt.Printf("%s (%d rows, showing %d)\n", table, model.Total(), len(rows))

	if len(rows) == 0 {
		return
	}

	cols := make([]string, 0, len(rows[0]))

	for col := range rows[0] {
		cols = append(cols, col)
	}

	sort.Strings(cols)
	fmt.Println(strings.Join(cols, "\t"))

	for _, row := range rows {
		parts := make([]string, 0, len(cols))

		for _, col := range cols {
			parts = append(parts, fmt.Sprint(row[col]))
		}

		fmt.Println(strings.Join(parts, "\t"))
	}
}
