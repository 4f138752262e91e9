package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gophercall/gopher/internal/protocol"
	"github.com/gophercall/gopher/internal/registry"
	"github.com/gophercall/gopher/internal/util"
)

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List the peers known to the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := registry.Query(cmd.Context(), registryAddr)
		if err != nil {
			return fmt.Errorf("%w (is gopherd running?)", err)
		}
		if len(ids) == 0 {
			util.LogInfo("no peers announced yet")
			return nil
		}
		return renderIdentities(ids)
	},
}

func renderIdentities(ids []protocol.PeerIdentity) error {
	data := pterm.TableData{{"Name", "IP", "Port"}}
	for _, id := range ids {
		data = append(data, []string{id.Name, id.Address, strconv.Itoa(int(id.Port))})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func renderPeers(peers []registry.Peer) error {
	data := pterm.TableData{{"Name", "IP", "Port", "Last seen"}}
	for _, p := range peers {
		data = append(data, []string{
			p.Name, p.IP, strconv.Itoa(int(p.Port)),
			time.Since(p.LastSeen).Round(time.Second).String() + " ago",
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
