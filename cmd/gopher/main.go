// gopher makes LAN video calls between peers found through gopherd.
//
// Peers announce themselves by UDP broadcast, list each other through the
// local registry daemon and exchange live video over plain UDP.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gophercall/gopher/internal/config"
	"github.com/gophercall/gopher/internal/util"
)

var version = "dev"

// Global flags.
var (
	peerName     string
	registryAddr string
	debugMode    bool
)

var rootCmd = &cobra.Command{
	Use:           "gopher",
	Short:         "Find peers on the LAN and call them",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			util.EnableDebug()
		}
	},
}

func init() {
	def := config.DefaultPeer()
	rootCmd.PersistentFlags().StringVarP(&peerName, "name", "n", "", "Friendly name to announce (prompted for if empty)")
	rootCmd.PersistentFlags().StringVar(&registryAddr, "registry", def.RegistryAddr, "Registry query address")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(announceCmd, peersCmd, watchCmd, callCmd)
}

func main() {
	// Root context, cancelled on Ctrl+C or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// resolveName returns the --name flag, prompting for one on a terminal
// and falling back to the host name otherwise.
func resolveName() string {
	if name := strings.TrimSpace(peerName); name != "" {
		return name
	}
	if interactive() {
		for {
			raw, _ := pterm.DefaultInteractiveTextInput.
				WithDefaultText("Friendly name for your gopher").
				Show()
			pterm.Println()
			if name := strings.TrimSpace(raw); name != "" {
				return name
			}
			util.LogWarning("name must not be empty")
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "gopher"
}
