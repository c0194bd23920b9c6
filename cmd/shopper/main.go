// Command shopper drives the storefront API from a terminal the way the
// browser does: it keeps the session token and the local cart in a state
// directory and pushes cart changes to the account once signed in.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aurum-storefront/internal/cart"
	"aurum-storefront/internal/client"
	"aurum-storefront/internal/domain"
	"aurum-storefront/internal/logging"
)

const usage = `usage: shopper [-api URL] [-state DIR] <command>

commands:
  login <email>                 request a login code
  verify <email> <code>         sign in and merge the account cart
  me                            show the profile and refresh the cart
  cart show
  cart add --product FILE --variant ID [--qty N]
  cart remove <variantId>
  cart set <variantId> <qty>
  cart clear
  logout`

var errUsage = errors.New("invalid arguments")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	api    *client.Client
	store  *cart.Store
	syncer *cart.Syncer
	out    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("shopper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", envOrDefault("SHOPPER_API", "http://localhost:8080"), "storefront API base URL")
	stateDir := fs.String("state", envOrDefault("SHOPPER_STATE", defaultStateDir()), "directory for session and cart state")
	verbose := fs.Bool("v", false, "log cart sync activity")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(stderr, level, true)

	storage, err := cart.NewFileStorage(*stateDir)
	if err != nil {
		return err
	}
	a := &app{
		api:   client.New(*apiURL, storage, 15*time.Second),
		store: cart.NewStore(storage, logging.Component(logger, "cart")),
		out:   stdout,
	}
	a.syncer = cart.NewSyncer(a.api, a.store, logging.Component(logger, "sync"))
	a.store.SetPusher(a.syncer)
	defer a.syncer.Close()

	return a.dispatch(ctx, fs.Args())
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		return a.login(ctx, args[1])
	case "verify":
		if len(args) != 3 {
			return errUsage
		}
		return a.verify(ctx, args[1], args[2])
	case "me":
		return a.me(ctx)
	case "cart":
		if len(args) < 2 {
			return errUsage
		}
		return a.cart(args[1], args[2:])
	case "logout":
		return a.logout()
	}
	return errUsage
}

func (a *app) login(ctx context.Context, email string) error {
	res, err := a.api.SendOTP(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, res.Message)
	if res.Warning != "" {
		fmt.Fprintln(a.out, "warning:", res.Warning)
	}
	return nil
}

func (a *app) verify(ctx context.Context, email, code string) error {
	res, err := a.api.VerifyOTP(ctx, email, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s\n", res.Customer.Email)

	if remote := res.Customer.Cart; remote != nil {
		merged, err := a.store.MergeOnce(remote.Version, remote.Items)
		if err != nil {
			return fmt.Errorf("merge account cart: %w", err)
		}
		if merged && len(remote.Items) > 0 {
			fmt.Fprintf(a.out, "merged %d item(s) from your account cart\n", domain.TotalQuantity(remote.Items))
		}
	}
	return a.printCart()
}

func (a *app) me(ctx context.Context) error {
	profile, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	remote, err := a.api.GetCart(ctx)
	if err != nil {
		return err
	}
	if err := a.store.Replace(remote.Items); err != nil {
		return err
	}
	if err := a.store.MarkSynced(remote.Version); err != nil {
		return err
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}

func (a *app) logout() error {
	if err := a.api.Logout(); err != nil {
		return err
	}
	if err := a.store.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) cart(cmd string, args []string) error {
	var err error
	switch cmd {
	case "show":
		if len(args) != 0 {
			return errUsage
		}
	case "add":
		err = a.cartAdd(args)
	case "remove":
		if len(args) != 1 {
			return errUsage
		}
		err = a.store.Remove(args[0])
	case "set":
		if len(args) != 2 {
			return errUsage
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return errUsage
		}
		err = a.store.SetQuantity(args[0], n)
	case "clear":
		err = a.store.Clear()
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	return a.printCart()
}

func (a *app) cartAdd(args []string) error {
	fs := flag.NewFlagSet("cart add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	productFile := fs.String("product", "", "product JSON file")
	variant := fs.String("variant", "", "variant id")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil || *productFile == "" || *variant == "" {
		return errUsage
	}

	raw, err := os.ReadFile(*productFile)
	if err != nil {
		return err
	}
	var product cart.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return fmt.Errorf("decode product %s: %w", *productFile, err)
	}
	return a.store.Add(*variant, *qty, product)
}

func (a *app) printCart() error {
	items := a.store.Get()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "cart is empty")
		return nil
	}
	for _, it := range items {
		title := it.Title
		if title == "" {
			title = it.VariantID
		}
		fmt.Fprintf(a.out, "%-3d %s (%s) @ %s  [%s]\n", it.Quantity, title, it.VariantTitle, it.Price, it.VariantID)
	}
	fmt.Fprintf(a.out, "%d item(s)\n", domain.TotalQuantity(items))
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "aurum-shopper")
	}
	return ".aurum-shopper"
}
