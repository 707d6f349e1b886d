package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"chatkit/core"
	"chatkit/export"
	"chatkit/factories"
	"chatkit/services/reply"
	"chatkit/session"

	"github.com/joho/godotenv"
)

// Console front-end for a chatkit session: type to chat, /voice to capture,
// /export to save the transcript, /quit to leave.
func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "./settings.json", "Path to settings JSON")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		core.GetLogger().With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
		settings = factories.DefaultSettingsConfig()
		relayCfg := reply.DefaultConfig()
		relayCfg.BaseURL = "http://localhost:5000"
		settings.Reply.HTTPConfig = &relayCfg
	}
	settings.InjectAPIKeys(factories.APIKeys{
		OpenAI:  os.Getenv("OPENAI_API_KEY"),
		Capture: os.Getenv("CAPTURE_API_KEY"),
	})

	hooks := session.Hooks{
		OnAppend: renderMessage,
	}

	sess, err := settings.BuildSession(ctx, hooks, core.GetLogger())
	if err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Fatal("failed to build session")
	}
	defer func() {
		if sess.Feed != nil {
			sess.Feed.Close()
		}
		sess.Speech.Cancel()
	}()

	fmt.Println("chatkit console — /voice, /export, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit":
			return
		case "/voice":
			sess.Controller.SubmitVoice(ctx)
		case "/export":
			if err := sess.Controller.Export(ctx); errors.Is(err, export.ErrEmptyHistory) {
				fmt.Println("No chat messages to export!")
			}
		default:
			sess.Controller.SubmitText(ctx, line)
		}
	}
}

func renderMessage(msg core.Message) {
	if msg.IsStatus() {
		fmt.Printf("  %s\n", msg.Text)
		return
	}
	fmt.Printf("  [%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), strings.ToUpper(string(msg.Sender)), msg.Text)
}
