package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"expensebook/internal/core"
	"expensebook/internal/editor"
	"expensebook/internal/gateway"
	"expensebook/internal/grouping"
	"expensebook/internal/listview"
	"expensebook/internal/notify"
	"expensebook/internal/paging"
)

const usage = `usage: expensebook <command> [flags]

commands:
  list          print expenses (-q, -sort, -month, -categories, -group, -pages)
  browse        interactive list; type "help" once started
  categories    print categories (-q, -sort)
  add-expense   create or update an expense (-id, -name, -amount, -date, -category)
  add-category  create or update a category (-id, -name, -color)
  rm-expense    delete an expense by id
  rm-category   delete a category by id; its expenses are kept
`

var errUsage = errors.New("invalid usage")

type app struct {
	gw       gateway.Gateway
	out      io.Writer
	in       io.Reader
	notifier notify.Notifier
	pageSize int
	debounce time.Duration
	now      func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "browse":
		return a.browse(ctx, rest)
	case "categories":
		return a.categories(ctx, rest)
	case "add-expense":
		return a.addExpense(ctx, rest)
	case "add-category":
		return a.addCategory(ctx, rest)
	case "rm-expense":
		return a.remove(ctx, rest, a.editor().DeleteExpense)
	case "rm-category":
		return a.remove(ctx, rest, a.editor().DeleteCategory)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) editor() *editor.Editor {
	return editor.New(a.gw, a.notifier)
}

// listFlags are shared by list and browse.
type listFlags struct {
	query      string
	sort       string
	month      string
	categories string
	group      string
}

func (lf *listFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&lf.query, "q", "", "name filter")
	fs.StringVar(&lf.sort, "sort", core.DefaultSort.String(), "sort key, e.g. date,desc")
	fs.StringVar(&lf.month, "month", "", "year-month filter, YYYY-MM")
	fs.StringVar(&lf.categories, "categories", "", "comma separated category ids")
	fs.StringVar(&lf.group, "group", "auto", "grouping: auto, none, day or month")
}

// controller builds a list controller with the flags applied. Nothing is
// fetched until the caller refreshes.
func (a *app) controller(ctx context.Context, lf listFlags, onUpdate func(paging.Result, paging.Snapshot)) (*listview.Controller, error) {
	sort, err := core.ParseSortKey(lf.sort)
	if err != nil {
		return nil, err
	}
	opts := listview.Options{
		PageSize: a.pageSize,
		Debounce: a.debounce,
		Notifier: a.notifier,
		Now:      a.now,
		OnUpdate: onUpdate,
	}
	if lf.group == "auto" {
		opts.FollowSort = true
	} else {
		mode, err := grouping.ParseMode(lf.group)
		if err != nil {
			return nil, err
		}
		opts.Mode = mode
	}
	var period core.Period
	if lf.month != "" {
		if period, err = core.ParsePeriod(lf.month); err != nil {
			return nil, err
		}
	}

	c := listview.New(ctx, a.gw, opts)
	if err := c.SortChanged(sort); err != nil {
		c.Close()
		return nil, err
	}
	c.SearchChanged(lf.query)
	c.CategoriesChanged(splitList(lf.categories))
	c.PeriodChanged(period)
	return c, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var lf listFlags
	lf.register(fs)
	pages := fs.Int("pages", 1, "number of pages to load, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := a.controller(ctx, lf, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Refresh(ctx); err != nil {
		return err
	}
	for n := 1; *pages == 0 || n < *pages; n++ {
		snap := c.Snapshot()
		if snap.Last {
			break
		}
		if res := c.ScrolledToBottom(ctx); res.Outcome == paging.OutcomeFailed {
			return res.Err
		}
	}
	renderList(a.out, c.Snapshot())
	return nil
}

const browseHelp = `commands:
  /<text>          search by name ("/" alone clears)
  sort <key>       one of createdAt|name|date with ,asc or ,desc
  cat <ids>        comma separated category ids ("cat" alone clears)
  month <YYYY-MM>  month filter; "month +1", "month -1", "month clear"
  group <mode>     none, day or month
  more             load the next page
  refresh          reload now
  quit
`

// browse reads one command per line. Filter edits are debounced; the list
// is printed whenever a load completes.
func (a *app) browse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var lf listFlags
	lf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var mu sync.Mutex
	c, err := a.controller(ctx, lf, func(res paging.Result, snap paging.Snapshot) {
		if res.Outcome == paging.OutcomeStale || res.Outcome == paging.OutcomeSkipped {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		renderList(a.out, snap)
	})
	if err != nil {
		return err
	}
	defer c.Close()
	c.PulledToRefresh(ctx)

	sc := bufio.NewScanner(a.in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "q" {
			return nil
		}
		if line == "help" {
			mu.Lock()
			fmt.Fprint(a.out, browseHelp)
			mu.Unlock()
			continue
		}
		if err := a.browseCommand(ctx, c, line); err != nil {
			mu.Lock()
			fmt.Fprintln(a.out, "error:", err)
			mu.Unlock()
		}
	}
	// Input ended with an edit still waiting on the debounce.
	c.Flush()
	return sc.Err()
}

func (a *app) browseCommand(ctx context.Context, c *listview.Controller, line string) error {
	if strings.HasPrefix(line, "/") {
		c.SearchChanged(line[1:])
		return nil
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "sort":
		k, err := core.ParseSortKey(arg)
		if err != nil {
			return err
		}
		return c.SortChanged(k)
	case "cat":
		c.CategoriesChanged(splitList(arg))
	case "month":
		switch {
		case arg == "clear" || arg == "":
			c.PeriodCleared()
		case strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-"):
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid month offset %q", arg)
			}
			c.PeriodShifted(n)
		default:
			p, err := core.ParsePeriod(arg)
			if err != nil {
				return err
			}
			c.PeriodChanged(p)
		}
	case "group":
		mode, err := grouping.ParseMode(arg)
		if err != nil {
			return err
		}
		c.ModeChanged(mode)
	case "more":
		c.ScrolledToBottom(ctx)
	case "refresh":
		c.PulledToRefresh(ctx)
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
	return nil
}

func (a *app) categories(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ContinueOnError)
	fs.SetOutput(a.out)
	query := fs.String("q", "", "name filter")
	sortFlag := fs.String("sort", core.SortNameAsc.String(), "sort key, createdAt or name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sort, err := core.ParseSortKey(*sortFlag)
	if err != nil {
		return err
	}
	items, err := a.gw.FetchAllCategories(ctx, core.AllCategoryCriteria{Sort: sort, Name: *query})
	if err != nil {
		return err
	}
	renderCategories(a.out, items)
	return nil
}

func (a *app) addExpense(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-expense", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "expense id to update; empty creates")
	name := fs.String("name", "", "expense name")
	amount := fs.String("amount", "0", "amount, e.g. 12.50")
	date := fs.String("date", "", "date YYYY-MM-DD, default today")
	category := fs.String("category", "", "category id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		return err
	}
	d := core.DateOf(a.clock())
	if *date != "" {
		if d, err = core.ParseDate(*date); err != nil {
			return err
		}
	}
	return a.editor().SaveExpense(ctx, core.ExpenseUpsert{
		ID:         *id,
		Name:       *name,
		Amount:     core.Money{Cents: cents},
		Date:       d,
		CategoryID: *category,
	}, nil)
}

func (a *app) addCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-category", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "category id to update; empty creates")
	name := fs.String("name", "", "category name")
	color := fs.String("color", "", "display color, e.g. #ff8800")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.editor().SaveCategory(ctx, core.CategoryUpsert{ID: *id, Name: *name, Color: *color}, nil)
}

func (a *app) remove(ctx context.Context, args []string, del func(context.Context, string, editor.Refresher) error) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected exactly one id", errUsage)
	}
	return del(ctx, args[0], nil)
}

func (a *app) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
