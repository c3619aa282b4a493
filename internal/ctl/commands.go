package ctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/viewstate"

	"github.com/google/subcommands"
)

// lastError returns the most recent message an error observable published.
func lastError(errs interface{ Get() (string, bool) }) string {
	msg, _ := errs.Get()
	return msg
}

type listCmd struct {
	app        *App
	sort       string
	min        string
	max        string
	categories string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the owner's expenses" }
func (*listCmd) Usage() string {
	return `expensectl list [-min <amount>] [-max <amount>] [-category <c1,c2>] [-sort <key[:asc|desc]>]

  Lists expenses, optionally filtered by amount and category, then sorted.
  Sort keys are amount, date and name.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sort, "sort", "", "Sort order, e.g. amount:desc")
	f.StringVar(&c.min, "min", "", "Minimum amount (inclusive)")
	f.StringVar(&c.max, "max", "", "Maximum amount (inclusive)")
	f.StringVar(&c.categories, "category", "", "Comma-separated categories to keep")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var order *core.SortOrder
	if c.sort != "" {
		o, err := core.ParseSortOrder(c.sort)
		if err != nil {
			return c.app.usage("%v", err)
		}
		order = &o
	}
	categories := splitList(c.categories)

	var records []core.Expense
	err := c.app.withGateway(ctx, func(gw gateway.Gateway) error {
		ctl := viewstate.NewListController(gw, c.app.Owner, viewstate.WithLogger(c.app.logger()))
		defer ctl.Close()

		if err := ctl.Reload(ctx); err != nil {
			return err
		}
		if c.min != "" || c.max != "" || len(categories) > 0 {
			ctl.ApplyFilter(c.min, c.max, categories)
		}
		if order != nil {
			ctl.ApplySort(*order)
		}
		records, _ = ctl.Expenses().Get()
		return nil
	})
	if err != nil {
		return c.app.fail(err)
	}

	sortText := ""
	if order != nil {
		sortText = order.String()
	}
	c.app.printMarkdown(listMarkdown(records, sortText, c.app.Currency))
	return subcommands.ExitSuccess
}

type statsCmd struct {
	app    *App
	window string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "summarize spending over a time window" }
func (*statsCmd) Usage() string {
	return `expensectl stats [-window today|yesterday|week|month|year|all]

  Prints the total, the per-day totals and the per-category totals of the
  expenses inside the window. The window defaults to today.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.window, "window", "today", "Time window")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	window, err := core.ParseTimeWindow(c.window)
	if err != nil {
		return c.app.usage("%v", err)
	}

	view := statsView{window: window}
	err = c.app.withGateway(ctx, func(gw gateway.Gateway) error {
		ctl := viewstate.NewStatsController(gw, c.app.Owner,
			viewstate.WithLogger(c.app.logger()),
			viewstate.WithClock(c.app.now))
		defer ctl.Close()

		ctl.SetWindow(window)
		if err := ctl.Reload(ctx); err != nil {
			return err
		}
		filtered, _ := ctl.Filtered().Get()
		view.records = len(filtered)
		view.total, _ = ctl.Total().Get()
		view.daily, _ = ctl.Daily().Get()
		view.byCategory, _ = ctl.ByCategory().Get()
		return nil
	})
	if err != nil {
		return c.app.fail(err)
	}

	c.app.printMarkdown(statsMarkdown(view, c.app.Currency))
	return subcommands.ExitSuccess
}

type addCmd struct {
	app      *App
	name     string
	date     string
	amount   string
	category string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new expense" }
func (*addCmd) Usage() string {
	return `expensectl add -name <name> -amount <amount> -category <category> [-date d/M/yyyy]

  Records an expense for the owner. The date defaults to today.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "What the money was spent on")
	f.StringVar(&c.date, "date", "", "Day of the expense as d/M/yyyy (defaults to today)")
	f.StringVar(&c.amount, "amount", "", "Amount, e.g. 12.50 or 12,50")
	f.StringVar(&c.category, "category", "", "One of the categories listed by 'expensectl categories'")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return c.app.usage("%v %q", err, c.amount)
	}
	category, err := core.ParseCategory(c.category)
	if err != nil {
		return c.app.usage("%v %q", err, c.category)
	}
	date := c.date
	if date == "" {
		date = core.DateOf(c.app.now()).String()
	}

	exp := core.NewExpense{Name: c.name, Date: date, Amount: amount, Category: string(category)}
	if err := exp.Validate(); err != nil {
		return c.app.usage("%v", err)
	}

	var id string
	err = c.app.withGateway(ctx, func(gw gateway.Gateway) error {
		var err error
		id, err = gw.Create(ctx, c.app.Owner, exp)
		return err
	})
	if err != nil {
		return c.app.fail(err)
	}

	c.app.logger().InfoContext(ctx, "Expense created",
		log.FieldOperation, log.OpCreate,
		log.FieldOwnerID, c.app.Owner,
		log.FieldExpenseID, id)
	fmt.Fprintf(c.app.out(), "Added %s (%s, %s)\n", id, strings.TrimSpace(c.name), formatMoney(amount, c.app.Currency))
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	app *App
	id  string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove an expense by id" }
func (*deleteCmd) Usage() string {
	return `expensectl delete -id <id>

  Removes one of the owner's expenses and prints the remaining list.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "ID of the expense to remove")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.id) == "" {
		return c.app.usage("-id is required")
	}

	var remaining []core.Expense
	err := c.app.withGateway(ctx, func(gw gateway.Gateway) error {
		ctl := viewstate.NewListController(gw, c.app.Owner, viewstate.WithLogger(c.app.logger()))
		defer ctl.Close()

		if err := ctl.Delete(ctx, core.Expense{ID: c.id, OwnerID: c.app.Owner}); err != nil {
			if msg := lastError(ctl.Errors()); msg != "" {
				return errors.New(msg)
			}
			return err
		}
		remaining, _ = ctl.Expenses().Get()
		return nil
	})
	if err != nil {
		return c.app.fail(err)
	}

	fmt.Fprintf(c.app.out(), "Deleted %s\n\n", c.id)
	c.app.printMarkdown(listMarkdown(remaining, "", c.app.Currency))
	return subcommands.ExitSuccess
}

type categoriesCmd struct {
	app *App
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list the selectable categories" }
func (*categoriesCmd) Usage() string {
	return `expensectl categories

  Lists the categories accepted by 'expensectl add'.
`
}

func (*categoriesCmd) SetFlags(*flag.FlagSet) {}

func (c *categoriesCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	c.app.printMarkdown(categoriesMarkdown())
	return subcommands.ExitSuccess
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
