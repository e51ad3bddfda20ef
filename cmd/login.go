package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koval01/telegram-gateway/internal/config"
	"github.com/koval01/telegram-gateway/internal/telegram"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Bootstrap the session credential",
	Long: `login performs the one-time interactive sign-in against the bridge:
it sends a login code to your phone, exchanges the code for an exported
session string, and writes it to ` + config.DotenvFile + ` as SESSION.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogin(cmd)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command) error {
	// No session credential exists before login succeeds, so the serving
	// validation must not run here.
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := telegram.NewClient(telegram.Config{
		BaseURL: cfg.BridgeURL,
		APIID:   cfg.APIID,
		APIHash: cfg.APIHash,
	})
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	phone, err := prompt(in, out, "Phone number (international format): ")
	if err != nil {
		return err
	}
	codeHash, err := client.SendCode(ctx, phone)
	if err != nil {
		return err
	}

	code, err := prompt(in, out, "Login code: ")
	if err != nil {
		return err
	}
	session, err := client.SignIn(ctx, phone, codeHash, code)
	if err != nil {
		return err
	}

	if err := writeSession(in, out, config.DotenvFile, session); err != nil {
		return err
	}
	fmt.Fprintf(out, "Session written to %s. Start the gateway with \"telegram-gateway serve\".\n", config.DotenvFile)
	return nil
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty input")
	}
	return line, nil
}

// writeSession appends SESSION to the dotenv file. An existing SESSION line
// is only replaced after explicit confirmation.
func writeSession(in *bufio.Reader, out io.Writer, path, session string) error {
	entry := fmt.Sprintf("SESSION=%q\n", session)

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "SESSION=") {
			fmt.Fprintf(out, "SESSION already exists in %s. Overwrite? [y/N]: ", path)
			answer, _ := in.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				return fmt.Errorf("refused to overwrite existing SESSION in %s", path)
			}
			continue
		}
		if line != "" {
			kept = append(kept, line)
		}
	}

	content := strings.Join(kept, "\n")
	if content != "" {
		content += "\n"
	}
	content += entry

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
