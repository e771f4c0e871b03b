// Command postoptima-ext is a terminal version of the browser extension.
//
//	postoptima-ext login -email you@example.com -password secret
//	postoptima-ext login-web
//	postoptima-ext select "text picked from a page"
//	postoptima-ext analyze "draft post"
//	postoptima-ext popup
//	postoptima-ext status
//	postoptima-ext logout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/prperemyshlev/postoptima-api/internal/authprovider"
	"github.com/prperemyshlev/postoptima-api/internal/config"
	"github.com/prperemyshlev/postoptima-api/internal/dto"
	"github.com/prperemyshlev/postoptima-api/internal/extension"
	"github.com/prperemyshlev/postoptima-api/internal/session"
	"github.com/prperemyshlev/postoptima-api/pkg/observability"
	"go.uber.org/zap"
)

var errLoginPending = errors.New("login still pending")

type client struct {
	cfg        config.ClientConfig
	holder     *session.Holder
	background *extension.Background
	popup      *extension.Popup
	logger     *zap.Logger
}

func main() {
	flags := flag.NewFlagSet("postoptima-ext", flag.ExitOnError)
	email := flags.String("email", "", "account email for login")
	password := flags.String("password", "", "account password for login")
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), "usage: postoptima-ext login|login-web|select|analyze|popup|status|logout [flags] [text]")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(2)
	}
	command := os.Args[1]
	if err := flags.Parse(os.Args[2:]); err != nil {
		log.Fatal(err)
	}

	var cfg config.ClientConfig
	if err := config.LoadSection("POSTOPTIMA_", &cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.InitLogger(os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	c := newClient(cfg, logger)
	ctx := context.Background()
	text := strings.Join(flags.Args(), " ")

	switch command {
	case "login":
		err = c.login(ctx, *email, *password)
	case "login-web":
		err = c.loginWeb(ctx)
	case "select":
		err = c.selectText(ctx, text)
	case "analyze":
		err = c.analyze(ctx, text)
	case "popup":
		err = c.showPopup(ctx)
	case "status":
		err = c.status(ctx)
	case "logout":
		err = c.popup.Logout()
		if err == nil {
			fmt.Println("Logged out")
		}
	default:
		flags.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Debug("Command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient(cfg config.ClientConfig, logger *zap.Logger) *client {
	store := extension.NewFileStore(cfg.StorePath)
	api := extension.NewAPIClient(cfg.APIURL)
	auth := authprovider.NewClient(cfg.AuthProviderURL, cfg.AnonKey)
	shell := newTerminalShell(os.Stdout)
	holder := session.NewHolder(auth, extension.TokenStore{Store: store})

	return &client{
		cfg:        cfg,
		holder:     holder,
		background: extension.NewBackground(api, store, shell, logger),
		popup:      extension.NewPopup(api, auth, store, shell, holder, cfg.PricingURL, logger),
		logger:     logger,
	}
}

func (c *client) login(ctx context.Context, email, password string) error {
	user, err := c.popup.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", user.Email)
	return nil
}

// loginWeb starts a relayed login and polls until the web page hands the
// session over or the poll timeout passes.
func (c *client) loginWeb(ctx context.Context) error {
	attemptID, err := c.background.InitiateLogin(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout.Duration)
	defer cancel()

	poll := func() error {
		if err := c.background.PollAttempts(ctx); err != nil {
			return backoff.Permanent(err)
		}
		switch c.background.State() {
		case extension.LoggedIn:
			return nil
		case extension.LoggedOut:
			return backoff.Permanent(fmt.Errorf("login attempt %s expired", attemptID))
		default:
			return errLoginPending
		}
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.cfg.PollInterval.Duration), ctx)
	if err := backoff.Retry(poll, b); err != nil {
		return fmt.Errorf("web login did not complete: %w", err)
	}

	fmt.Println("Logged in")
	return nil
}

func (c *client) selectText(ctx context.Context, text string) error {
	env, err := extension.Wrap(extension.Selection{Text: text})
	if err != nil {
		return err
	}
	return c.background.Dispatch(ctx, env)
}

func (c *client) analyze(ctx context.Context, text string) error {
	result, err := c.popup.Analyze(ctx, text)
	if err != nil {
		if errors.Is(err, extension.ErrNetwork) {
			return errors.New(extension.NetworkErrorMessage)
		}
		return err
	}
	printResult(result)
	return nil
}

func (c *client) showPopup(ctx context.Context) error {
	view, err := c.popup.Load(ctx)
	if err != nil {
		return err
	}

	switch view.State {
	case extension.LoggedIn:
		if view.User != nil {
			fmt.Printf("Logged in as %s\n", view.User.Email)
		} else {
			fmt.Println("Logged in")
		}
	default:
		fmt.Println("Logged out. Run `postoptima-ext login` or `postoptima-ext login-web`.")
	}

	if view.PostText != "" {
		fmt.Printf("Saved selection: %s\n", view.PostText)
	}
	if view.LatestResult != nil {
		printResult(view.LatestResult)
	}
	if view.ShowUpgrade {
		fmt.Printf("Upgrade to Pro: %s\n", c.cfg.PricingURL)
	}
	return nil
}

func (c *client) status(ctx context.Context) error {
	if err := c.holder.Init(ctx); err != nil {
		return err
	}

	user, err := c.holder.RequireVerified()
	if err != nil {
		if state, ok := c.holder.Current().(session.Authenticated); ok {
			fmt.Printf("%s has not verified their email yet\n", state.User.Email)
			return nil
		}
		fmt.Println("Logged out")
		return nil
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Email, user.ID)
	return nil
}

func printResult(result *dto.AnalyzeResponse) {
	fmt.Printf("Score: %d\n", result.AlgorithmScore)
	fmt.Printf("Engagement: %d%%\n", result.EngagementPrediction)
	if result.OptimizedContent != "" {
		fmt.Printf("Optimized: %s\n", result.OptimizedContent)
	}
	if len(result.Suggestions) > 0 {
		fmt.Println("Tips:")
		for _, s := range result.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
}
