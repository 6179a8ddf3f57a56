package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-client/apimodel"
	"github.com/jrsteele09/go-session-client/clients"
	"github.com/jrsteele09/go-session-client/gateway"
	"github.com/jrsteele09/go-session-client/internal/bootstrap"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: %s\n", err)
		os.Exit(1)
	}
}

type options struct {
	client   string
	command  string
	phone    string
	code     string
	referrer string
	username string
	password string
	path     string
	metrics  bool
	colour   bool
}

func parseFlags(args []string, cfg config.Config, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.client, "client", cfg.GetClientID(), "client runtime: admin, pc or mini")
	fs.StringVar(&o.command, "cmd", "status", "login, wx-login, send-code, whoami, status, get, logout")
	fs.StringVar(&o.phone, "phone", "", "phone number for login and send-code")
	fs.StringVar(&o.code, "code", "", "SMS verification code, or the WeChat code for wx-login")
	fs.StringVar(&o.referrer, "referrer", "", "referrer code for first login")
	fs.StringVar(&o.username, "username", "", "admin username")
	fs.StringVar(&o.password, "password", "", "admin password")
	fs.StringVar(&o.path, "path", "", "API path for get")
	fs.BoolVar(&o.metrics, "metrics", false, "print request counters on exit")
	fs.BoolVar(&o.colour, "colour", cfg.GetEnv() == "DEV", "colour terminal output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())

	o, err := parseFlags(args, c, stderr)
	if err != nil {
		return err
	}
	if o.colour {
		displayAppname(c.GetAppName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := &terminal{out: stderr, colour: o.colour}
	sys, err := bootstrap.Initialise(ctx, c, o.client,
		gateway.WithNotifier(term),
		gateway.WithNavigator(term),
		// A terminal has nothing to navigate away from, so redirect immediately.
		gateway.WithAfterFunc(func(_ time.Duration, f func()) *time.Timer {
			f()
			return nil
		}),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := sys.Close(); err != nil {
			log.Err(err).Msg("failed to close storage")
		}
	}()

	returnError = execute(ctx, sys, o, stdout, term)
	if o.metrics {
		printMetrics(stderr, sys)
	}
	return returnError
}

func execute(ctx context.Context, sys *bootstrap.System, o *options, stdout io.Writer, term *terminal) error {
	switch o.command {
	case "login":
		var creds apimodel.Credentials = apimodel.PhoneLogin{Phone: o.phone, Code: o.code, ReferrerCode: o.referrer}
		if sys.Client.ID == clients.IDAdmin {
			creds = apimodel.AdminLogin{Username: o.username, Password: o.password}
		}
		if _, err := sys.Store.Login(ctx, creds); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "logged in as %s\n", displayName(sys))
		return nil

	case "wx-login":
		if _, err := sys.Store.WxLogin(ctx, apimodel.WxLogin{Code: o.code, ReferrerCode: o.referrer}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "logged in as %s\n", displayName(sys))
		return nil

	case "send-code":
		env, err := sys.Store.SendCode(ctx, o.phone)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, firstNonEmpty(env.Message, "code sent"))
		return nil

	case "whoami":
		if !sys.Guard.CheckLogin(term) {
			return nil
		}
		sys.Store.FetchProfile(ctx)
		return printJSON(stdout, sys.Store.Profile())

	case "status":
		snap := sys.Store.Snapshot()
		if !snap.IsLoggedIn() {
			fmt.Fprintf(stdout, "%s: logged out\n", sys.Client.ID)
			return nil
		}
		fmt.Fprintf(stdout, "%s: logged in as %s\n", sys.Client.ID, displayName(sys))
		if exp := snap.ExpiresAt(); !exp.IsZero() {
			fmt.Fprintf(stdout, "token expires %s\n", exp.Local().Format(time.RFC1123))
		}
		return nil

	case "get":
		if o.path == "" {
			return errors.New("-path is required")
		}
		term.request(http.MethodGet, o.path)
		env, err := sys.Gateway.Get(ctx, o.path, nil)
		if err != nil {
			return err
		}
		return printJSON(stdout, env.Data)

	case "logout":
		if err := sys.Store.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "logged out")
		return nil
	}
	return fmt.Errorf("unknown command %q", o.command)
}

func displayName(sys *bootstrap.System) string {
	p := sys.Store.Profile()
	return firstNonEmpty(p.Name(), p.Phone(), "unknown user")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMetrics(w io.Writer, sys *bootstrap.System) {
	families, err := sys.Registry.Gather()
	if err != nil {
		log.Err(err).Msg("failed to gather metrics")
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
