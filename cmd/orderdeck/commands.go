package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/waabox/orderdeck/internal/config"
	"github.com/waabox/orderdeck/internal/domain"
	"github.com/waabox/orderdeck/internal/order"
	"github.com/waabox/orderdeck/internal/tui"
)

type options struct {
	Config  string `long:"config" value-name:"FILE" description:"config file (default ~/.config/orderdeck/config.toml)"`
	URL     string `long:"url" value-name:"URL" description:"backend base URL"`
	Version bool   `long:"version" description:"print version and exit"`

	Login  loginCommand  `command:"login" description:"sign in and store the session"`
	Logout logoutCommand `command:"logout" description:"clear the stored session"`
	Whoami whoamiCommand `command:"whoami" description:"show the signed-in user"`
	Orders ordersCommand `command:"orders" description:"browse or create orders"`
	Lookup lookupCommand `command:"lookup" description:"show reference data used to compose orders"`
}

var stdin = bufio.NewReader(os.Stdin)

type loginCommand struct {
	Email   string `short:"e" long:"email" description:"account email (prompted when empty)"`
	SaveURL bool   `long:"save-url" description:"remember --url in the config file"`
}

func (c *loginCommand) Execute(_ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if c.SaveURL && opts.URL != "" {
		if err := config.Save(a.configPath, a.cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	email := c.Email
	if email == "" {
		if email, err = prompt("Email: "); err != nil {
			return err
		}
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := a.signalContext()
	defer cancel()
	user, err := a.client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return errors.New("login failed: invalid email or password")
		}
		return err
	}
	fmt.Printf("Logged in as %s\n", user.DisplayName())
	return nil
}

type logoutCommand struct{}

func (c *logoutCommand) Execute(_ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

type whoamiCommand struct {
	Remote bool `long:"remote" description:"ask the backend instead of the stored session"`
}

func (c *whoamiCommand) Execute(_ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	user := a.client.StoredUser()
	if c.Remote {
		ctx, cancel := a.signalContext()
		defer cancel()
		if user, err = a.client.Me(ctx); err != nil {
			return err
		}
	}
	fmt.Printf("%s <%s>\n", user.DisplayName(), user.Email)
	return nil
}

type ordersCommand struct {
	List   ordersListCommand   `command:"list" description:"list orders"`
	Create ordersCreateCommand `command:"create" description:"create an order from a TOML draft"`
}

type ordersListCommand struct {
	Plain bool `long:"plain" description:"print a table instead of the interactive browser"`
}

func (c *ordersListCommand) Execute(_ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	if !c.Plain && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd())) {
		expired, err := tui.Run(a.client, a.client.StoredUser(), a.session.Clear, a.relay)
		if err != nil {
			return err
		}
		if expired {
			return domain.ErrSessionExpired
		}
		return nil
	}

	ctx, cancel := a.signalContext()
	defer cancel()
	orders, err := a.client.ListOrders(ctx)
	if err != nil {
		return err
	}
	fmt.Print(tui.RenderOrders(orders))
	return nil
}

type ordersCreateCommand struct {
	File string `short:"f" long:"file" required:"yes" value-name:"FILE" description:"order draft in TOML"`
}

func (c *ordersCreateCommand) Execute(_ []string) error {
	draft, err := order.LoadDraft(c.File)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := a.signalContext()
	defer cancel()
	created, err := order.Submit(ctx, a.client, draft)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		printValidation(verr)
		return errors.New("order was not created")
	}
	if err != nil {
		return err
	}
	fmt.Printf("Created order %s (id %s, %d lines)\n", created.LookupCodeOrder, created.ID, len(created.Lines))
	return nil
}

type lookupCommand struct {
	Args struct {
		Kind string `positional-arg-name:"kind" description:"carriers, carrier-services, contacts, materials, projects, warehouses or all"`
	} `positional-args:"yes" required:"yes"`
}

func (c *lookupCommand) Execute(_ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := a.signalContext()
	defer cancel()
	var ref domain.ReferenceData
	switch c.Args.Kind {
	case tui.LookupCarriers:
		ref.Carriers, err = a.client.ListCarriers(ctx)
	case tui.LookupCarrierServices:
		ref.CarrierServices, err = a.client.ListCarrierServices(ctx)
	case tui.LookupWarehouses:
		ref.Warehouses, err = a.client.ListWarehouses(ctx)
	case tui.LookupProjects:
		ref.Projects, err = a.client.ListProjects(ctx)
	case tui.LookupMaterials:
		ref.Materials, err = a.client.ListMaterials(ctx)
	case tui.LookupContacts:
		ref.Contacts, err = a.client.ListContacts(ctx)
	case "all":
		ref, err = a.client.LoadReferenceData(ctx)
	}
	if err != nil {
		return err
	}

	kinds := []string{c.Args.Kind}
	if c.Args.Kind == "all" {
		kinds = tui.LookupKinds()
	}
	for _, kind := range kinds {
		out, err := tui.RenderLookup(kind, ref)
		if err != nil {
			return err
		}
		if len(kinds) > 1 {
			fmt.Println(kind)
		}
		fmt.Print(out)
	}
	return nil
}

func printValidation(verr *domain.ValidationError) {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	fmt.Fprintln(os.Stderr, "The order has errors:")
	for _, f := range fields {
		for _, msg := range verr.Fields[f] {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f, msg)
		}
	}
}

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo on a terminal, otherwise one line of stdin.
func readPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt("")
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
