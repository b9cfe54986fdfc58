// tg-auth generates a session string for the bot from the terminal,
// for users who prefer not to run the phone login through bot chat.
// Supports code-based phone login and QR login.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/session"
	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tg"
	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"github.com/blockedby/copygram/internal/config"
	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	useQR := flag.Bool("qr", false, "log in by scanning a QR code instead of a phone code")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		fatal("TG_API_ID and TG_API_HASH are required (get them at my.telegram.org)")
	}

	if err := logger.Init("warn", ""); err != nil {
		fatal("init logger: %v", err)
	}

	ctx := context.Background()

	var sessionString string
	if *useQR {
		sessionString, err = qrAuth(ctx, cfg)
	} else {
		sessionString, err = phoneAuth(ctx, cfg)
	}
	if err != nil {
		fatal("login failed: %v", err)
	}

	fmt.Println("\nYour session string (keep it secret, it grants full account access):")
	fmt.Println()
	fmt.Println(sessionString)
}

// phoneAuth runs the code-based login with terminal prompts.
func phoneAuth(ctx context.Context, cfg *config.Config) (string, error) {
	storage := &session.StorageMemory{}
	client := gotd.NewClient(cfg.TGApiID, cfg.TGApiHash, gotd.Options{
		SessionStorage: storage,
	})

	var sessionString string
	err := client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(terminalAuth{}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return err
		}

		loader := session.Loader{Storage: storage}
		data, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		sessionString, err = telegram.EncodeSessionString(data)
		return err
	})
	return sessionString, err
}

// qrAuth renders a login QR code in the terminal.
func qrAuth(ctx context.Context, cfg *config.Config) (string, error) {
	storage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()
	client := gotd.NewClient(cfg.TGApiID, cfg.TGApiHash, gotd.Options{
		SessionStorage: storage,
		UpdateHandler:  &dispatcher,
	})

	var sessionString string
	err := client.Run(ctx, func(ctx context.Context) error {
		loggedIn := qrlogin.OnLoginToken(&dispatcher)
		_, err := client.QR().Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			fmt.Println("Scan this with Telegram (Settings > Devices > Link Desktop Device):")
			fmt.Println()
			qrterminal.GenerateHalfBlock(token.URL(), qrterminal.L, os.Stdout)
			return nil
		})
		if err != nil {
			return err
		}

		loader := session.Loader{Storage: storage}
		data, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		sessionString, err = telegram.EncodeSessionString(data)
		return err
	})
	return sessionString, err
}

// terminalAuth prompts for phone, code and password on stdin.
type terminalAuth struct{}

func (terminalAuth) Phone(_ context.Context) (string, error) {
	return prompt("Phone number (international format): ")
}

func (terminalAuth) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return prompt("Login code: ")
}

func (terminalAuth) Password(_ context.Context) (string, error) {
	return prompt("Two-step verification password: ")
}

func (terminalAuth) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (terminalAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign-up through this tool is not supported")
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tg-auth: "+format+"\n", args...)
	os.Exit(1)
}
