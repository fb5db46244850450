// Command sharebite is a CLI client for the recipe and meal-plan store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sharebite/internal/migrate"
	"sharebite/internal/model"
	"sharebite/internal/repository"
	"sharebite/internal/repository/postgres"
	"sharebite/internal/repository/sqlite"
	"sharebite/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "sharebite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sharebite")
}

func defaultDBPath() string {
	if v := os.Getenv("SHAREBITE_DB"); v != "" {
		return v
	}
	return filepath.Join(cfgDir(), "local.db")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `sharebite CLI
Usage:
  sharebite [-db file] [-dsn url] <cmd> [args]

Commands:
  version
  migrate                                   (apply household store schema)
  load                                      (print recipes/plan/profile)
  seed                                      (write starter recipes locally)
  save-recipes  -file <json|->
  save-plan     -file <json|->
  save-profile  -file <json|->
  place         -date YYYY-MM-DD -type breakfast|lunch|dinner|snack -recipe <id>
  post-message  -text <msg>
  household     create -name N | join -code C | leave | rename -name N | show
  watch                                     (print change events until Ctrl-C)

-dsn defaults to $SHAREBITE_DSN, -db to $SHAREBITE_DB; a .env file in the
working directory is loaded first.
`)
	os.Exit(2)
}

// main dispatches subcommands against the reconciliation engine.
func main() {
	_ = godotenv.Load()

	db := flag.String("db", defaultDBPath(), "local store path")
	dsn := flag.String("dsn", os.Getenv("SHAREBITE_DSN"), "household store DSN (optional)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd == "version" {
		fmt.Printf("sharebite %s (%s)\n", version, buildDate)
		return
	}
	if cmd == "migrate" {
		if *dsn == "" {
			fail(fmt.Errorf("migrate needs -dsn"))
		}
		if err := migrate.Up(ctx, *dsn); err != nil {
			fail(err)
		}
		fmt.Println("household store schema up to date")
		return
	}

	local, err := sqlite.Open(*db)
	if err != nil {
		fail(err)
	}
	defer local.Close()

	var remote repository.RemoteStore
	var notifier repository.Notifier
	if *dsn != "" {
		pool, err := pgxpool.New(ctx, *dsn)
		if err != nil {
			fail(err)
		}
		defer pool.Close()
		remote = postgres.NewRepo(&postgres.DB{Pool: pool})
		notifier = postgres.NewNotifier(pool, logger)
	}

	eng, err := service.New(ctx, local, remote, notifier, logger)
	if err != nil {
		fail(err)
	}

	switch cmd {

	case "load":
		snap, err := eng.LoadData(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(snap)

	case "seed":
		if eng.GetHousehold() != nil {
			fail(fmt.Errorf("refusing to seed while a household is joined"))
		}
		snap, err := eng.LoadData(ctx)
		if err != nil {
			fail(err)
		}
		if len(snap.Recipes) > 0 {
			fail(fmt.Errorf("local store already has recipes"))
		}
		if st := eng.SaveRecipes(ctx, model.InitialRecipes(time.Now())); st != service.SavedLocal {
			fail(fmt.Errorf("seed save status: %s", st))
		}
		fmt.Println("seeded starter recipes")

	case "save-recipes":
		var recipes []model.Recipe
		readJSONArg(cmd, &recipes)
		fmt.Println(eng.SaveRecipes(ctx, recipes))

	case "save-plan":
		var plan []model.MealPlanItem
		readJSONArg(cmd, &plan)
		fmt.Println(eng.SavePlan(ctx, plan))

	case "save-profile":
		var p model.UserProfile
		readJSONArg(cmd, &p)
		if err := eng.SaveProfile(ctx, p); err != nil {
			fail(err)
		}

	case "place":
		fs := flag.NewFlagSet("place", flag.ExitOnError)
		date := fs.String("date", "", "calendar date (YYYY-MM-DD)")
		typ := fs.String("type", "", "meal slot")
		recipeID := fs.String("recipe", "", "recipe id")
		_ = fs.Parse(flag.Args()[1:])
		if *date == "" || *typ == "" || *recipeID == "" {
			fmt.Fprintln(os.Stderr, "need -date, -type and -recipe")
			os.Exit(1)
		}
		snap, err := eng.LoadData(ctx)
		if err != nil {
			fail(err)
		}
		item := model.MealPlanItem{
			ID:       model.NewID(),
			Date:     *date,
			Type:     model.MealType(*typ),
			RecipeID: *recipeID,
		}
		fmt.Println(eng.SavePlan(ctx, model.PlacePlanItem(snap.Plan, item)))

	case "post-message":
		fs := flag.NewFlagSet("post-message", flag.ExitOnError)
		text := fs.String("text", "", "message text")
		_ = fs.Parse(flag.Args()[1:])
		if *text == "" {
			fmt.Fprintln(os.Stderr, "need -text")
			os.Exit(1)
		}
		snap, err := eng.LoadData(ctx)
		if err != nil {
			fail(err)
		}
		msg := model.NewMessage(snap.Profile, *text, time.Now())
		fmt.Println(eng.SaveRecipes(ctx, append([]model.Recipe{msg}, snap.Recipes...)))

	case "household":
		runHousehold(ctx, eng)

	case "watch":
		hh := eng.GetHousehold()
		if hh == nil {
			fail(fmt.Errorf("no household joined"))
		}
		sub, err := eng.SubscribeToChanges(ctx, hh.ID, func() {
			fmt.Println("household data changed at", time.Now().Format(time.RFC3339))
		})
		if err != nil {
			fail(err)
		}
		fmt.Println("watching household", hh.Name, "- Ctrl-C to stop")
		<-ctx.Done()
		sub.Unsubscribe()

	default:
		usage()
	}
}

func runHousehold(ctx context.Context, eng *service.Storage) {
	if flag.NArg() < 2 {
		usage()
	}
	switch flag.Arg(1) {

	case "create":
		fs := flag.NewFlagSet("household create", flag.ExitOnError)
		name := fs.String("name", "", "household name")
		_ = fs.Parse(flag.Args()[2:])
		if *name == "" {
			fmt.Fprintln(os.Stderr, "need -name")
			os.Exit(1)
		}
		snap, err := eng.LoadData(ctx)
		if err != nil {
			fail(err)
		}
		hh, err := eng.CreateHousehold(ctx, *name)
		if err != nil {
			fail(err)
		}
		// one-time merge so pre-existing local data is not stranded
		if err := eng.SyncLocalToCloud(ctx, hh.ID, snap.Recipes, snap.Plan); err != nil {
			fail(err)
		}
		printJSON(hh)

	case "join":
		fs := flag.NewFlagSet("household join", flag.ExitOnError)
		code := fs.String("code", "", "join code")
		_ = fs.Parse(flag.Args()[2:])
		if *code == "" {
			fmt.Fprintln(os.Stderr, "need -code")
			os.Exit(1)
		}
		snap, err := eng.LoadData(ctx)
		if err != nil {
			fail(err)
		}
		hh, err := eng.JoinHousehold(ctx, *code)
		if err != nil {
			fail(err)
		}
		if hh == nil {
			fmt.Println("no household with that code")
			os.Exit(1)
		}
		if err := eng.SyncLocalToCloud(ctx, hh.ID, snap.Recipes, snap.Plan); err != nil {
			fail(err)
		}
		printJSON(hh)

	case "leave":
		if err := eng.LeaveHousehold(ctx); err != nil {
			fail(err)
		}

	case "rename":
		fs := flag.NewFlagSet("household rename", flag.ExitOnError)
		name := fs.String("name", "", "new name")
		_ = fs.Parse(flag.Args()[2:])
		hh := eng.GetHousehold()
		if hh == nil {
			fail(fmt.Errorf("no household joined"))
		}
		if *name == "" {
			fmt.Fprintln(os.Stderr, "need -name")
			os.Exit(1)
		}
		if err := eng.UpdateHouseholdName(ctx, hh.ID, *name); err != nil {
			fail(err)
		}

	case "show":
		hh := eng.GetHousehold()
		if hh == nil {
			fmt.Println("no household joined")
			return
		}
		printJSON(hh)

	default:
		usage()
	}
}

// readJSONArg parses the -file flag of a save command ("-" reads stdin).
func readJSONArg(cmd string, into any) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	file := fs.String("file", "", "JSON file (- for stdin)")
	_ = fs.Parse(flag.Args()[1:])
	if *file == "" {
		fmt.Fprintln(os.Stderr, "need -file")
		os.Exit(1)
	}
	var (
		b   []byte
		err error
	)
	if *file == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(*file)
	}
	if err != nil {
		fail(err)
	}
	if err := json.Unmarshal(b, into); err != nil {
		fail(err)
	}
}
