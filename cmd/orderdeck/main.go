package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/waabox/orderdeck/internal/domain"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

var opts options

func main() {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true

	_, err := parser.Parse()
	switch {
	case err == nil:
	case isHelp(err):
		fmt.Fprintln(os.Stdout, err)
		return
	case errors.Is(err, domain.ErrSessionExpired):
		// the user has already been told
		os.Exit(3)
	default:
		fmt.Fprintf(os.Stderr, "orderdeck: %v\n", err)
		os.Exit(1)
	}

	if parser.Active == nil {
		if opts.Version {
			fmt.Println("orderdeck", version)
			return
		}
		parser.WriteHelp(os.Stderr)
		os.Exit(2)
	}
}

func isHelp(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr) && ferr.Type == flags.ErrHelp
}
