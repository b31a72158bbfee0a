// Command overpass runs the overlay network agent: a TUN-backed virtual
// interface bridged to peers over a single external UDP socket.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"overpass/internal/flog"
	"overpass/internal/metrics"
	"overpass/internal/overlay"
	"overpass/internal/reactor"
	"overpass/internal/version"
)

const (
	interfaceNamePattern = "ovp%d"
	overlayNetmask       = "255.255.255.0"
	bindAddr             = "0.0.0.0"
	bindPort             = 14358
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var address string
	var clients []string

	cmd := &cobra.Command{
		Use:     "overpass",
		Short:   "Overlay network agent",
		Long:    "overpass bridges a TUN virtual interface to peers reachable over a single external UDP socket.",
		Version: version.Full("overpass"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				return fmt.Errorf("--address is required")
			}
			peers, err := parseClients(clients)
			if err != nil {
				return err
			}
			return run(cmd.Context(), address, peers)
		},
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Flags().StringVar(&address, "address", "", "local overlay IPv4 address (required)")
	cmd.Flags().StringArrayVar(&clients, "client", nil, "register a peer as <overlay-ip>:<external-ip> (repeatable)")

	return cmd
}

type peer struct {
	overlay  netip.Addr
	external netip.Addr
}

func parseClients(raw []string) ([]peer, error) {
	peers := make([]peer, 0, len(raw))
	for _, entry := range raw {
		overlayStr, externalStr, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("--client %q: expected <overlay-ip>:<external-ip>", entry)
		}
		overlayAddr, err := netip.ParseAddr(overlayStr)
		if err != nil {
			return nil, fmt.Errorf("--client %q: invalid overlay address: %w", entry, err)
		}
		externalAddr, err := netip.ParseAddr(externalStr)
		if err != nil {
			return nil, fmt.Errorf("--client %q: invalid external address: %w", entry, err)
		}
		peers = append(peers, peer{overlay: overlayAddr, external: externalAddr})
	}
	return peers, nil
}

func run(ctx context.Context, address string, peers []peer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := flog.New("overpass", flog.Info)
	defer log.Close()

	met := metrics.New(prometheus.DefaultRegisterer)

	r := reactor.New(ctx)

	srv, err := overlay.Construct(overlay.Config{
		InterfaceNamePattern: interfaceNamePattern,
		OverlayAddr:          address,
		OverlayNetmask:       overlayNetmask,
		BindAddr:             bindAddr,
		BindPort:             bindPort,
	}, r, log, met)
	if err != nil {
		r.Stop()
		return fmt.Errorf("provisioning virtual interface: %w", err)
	}
	defer srv.Close()

	if err := srv.Start(); err != nil {
		r.Stop()
		return fmt.Errorf("starting overlay server: %w", err)
	}
	log.Infof("overlay server started on %s (overlay %s)", srv.InterfaceName(), address)

	for _, p := range peers {
		if err := srv.AddKnownClient(p.overlay, p.external); err != nil {
			r.Stop()
			return fmt.Errorf("registering client %s -> %s: %w", p.overlay, p.external, err)
		}
		log.Infof("registered client %s -> %s", p.overlay, p.external)
	}

	<-ctx.Done()
	log.Infof("shutting down")
	r.Stop()
	r.Wait()
	return nil
}
