package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/permissionlesstech/bitchat-mesh/internal/config"
	"github.com/permissionlesstech/bitchat-mesh/internal/identity"
	"github.com/permissionlesstech/bitchat-mesh/internal/mesh"
	"github.com/permissionlesstech/bitchat-mesh/internal/obslog"
	"github.com/permissionlesstech/bitchat-mesh/internal/radio"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Join the mesh and open an interactive chat prompt",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	rt, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	obslog.Init(obslog.Options{Level: rt.LogLevel, Format: rt.LogFormat})
	log := obslog.Get()

	id, err := identity.New()
	if err != nil {
		return fmt.Errorf("bitchat: generate identity: %w", err)
	}

	adapter, err := radio.NewPlatformAdapter()
	if err != nil {
		log.WithError(err).Warn("bitchat: no platform BLE adapter, running against an in-memory simulator")
		adapter = radio.NewSimulator(512)
	}

	engine, err := mesh.New(mesh.Config{
		Identity:           id,
		Nickname:           rt.Nickname,
		Defaults:           config.DefaultConfig(),
		ServiceUUID:        rt.ServiceUUID,
		CharacteristicUUID: config.CharacteristicUUID,
		Radio:              adapter,
		Delegate:           terminalDelegate{},
	})
	if err != nil {
		return fmt.Errorf("bitchat: build engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.StartServices(ctx); err != nil {
		return fmt.Errorf("bitchat: start services: %w", err)
	}
	defer engine.StopServices()

	fmt.Printf("bitchat: id=%s nick=%q pronto. Digite uma mensagem, ou /who, /nick <nome>, /quit.\n", engine.LocalPeerID(), rt.Nickname)

	done := make(chan struct{})
	go func() {
		defer close(done)
		inputLoop(engine)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

// inputLoop reads stdin line by line, dispatching slash commands and
// broadcasting everything else.
func inputLoop(engine *mesh.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !processCommand(engine, line) {
				return
			}
			continue
		}
		engine.SendMessage(line)
	}
}

// processCommand handles a single slash command and reports whether the
// input loop should keep reading.
func processCommand(engine *mesh.Engine, line string) bool {
	parts := strings.SplitN(line, " ", 2)
	command := parts[0]
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	switch command {
	case "/who", "/w":
		nicks := engine.PeerNicknames()
		ids := engine.ConnectedPeerIDs()
		if len(ids) == 0 {
			fmt.Println("Nenhum peer conectado")
			break
		}
		fmt.Println("Peers conectados:")
		for _, id := range ids {
			fmt.Printf("  %s (%s)\n", nicks[id], id)
		}

	case "/nick":
		if args == "" {
			fmt.Println("Uso: /nick <apelido>")
			break
		}
		engine.SetNickname(args)
		fmt.Printf("Apelido alterado para %s\n", args)

	case "/quit", "/exit":
		return false

	default:
		fmt.Printf("Comando desconhecido: %s\n", command)
	}
	return true
}
