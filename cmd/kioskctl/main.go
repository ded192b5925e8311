package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
)

type globalOptions struct {
	server  string
	token   string
	timeout time.Duration
	json    bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newRootCmd собирает дерево команд; out: куда печатать результаты
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "kioskctl",
		Short: "Control a DDC4000 kiosk from the command line",
		Long: `kioskctl talks to a running kioskd: presets, captures, gallery and status.
The fit, zoom and url commands are computed locally and need no server.`,
		Example: `  # Compute the auto-fit zoom for a 1024x600 container
  kioskctl fit --resolution WVGA --container 1024x600

  # Save a preset and make it the autoload entry
  kioskctl presets save Boiler --ip 192.168.10.21 --resolution WVGA
  kioskctl presets autoload Boiler

  # Take a screenshot and download it
  kioskctl capture --ip 192.168.10.21
  kioskctl gallery download 1718000000000 -o boiler.png

  # Print a QR code with a deep link for a phone
  kioskctl qr --ip 192.168.10.21 --autoload`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       usecase.ShellVersion,
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("KIOSK_SERVER", "http://localhost:8080"), "kioskd base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("AUTH_BEARER_TOKEN"), "bearer token for kioskd")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	flags.BoolVar(&opts.json, "json", false, "print raw JSON instead of tables")

	client := func() *apiClient { return newAPIClient(opts.server, opts.token, opts.timeout) }

	root.AddCommand(
		newFitCmd(opts),
		newZoomCmd(opts),
		newURLCmd(opts),
		newConnectCmd(opts, client),
		newViewportCmd(opts, client),
		newPresetsCmd(opts, client),
		newCaptureCmd(opts, client),
		newGalleryCmd(opts, client),
		newQRCmd(opts),
		newStatusCmd(opts, client),
	)
	return root
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
