// cmd/ascii-chat-client/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/n0remac/ascii-chat-server/internal/wire"
)

func main() {
	server := flag.String("server", "127.0.0.1:27224", "ascii-chat server address")
	name := flag.String("name", "guest", "display name")
	width := flag.Uint("width", 80, "terminal width in character cells")
	height := flag.Uint("height", 24, "terminal height in character cells")
	halfBlock := flag.Bool("half-block", true, "use half-block (double vertical resolution) rendering")
	color := flag.Bool("color", true, "request truecolor output")
	flag.Parse()

	conn, err := net.Dial("tcp", *server)
	if err != nil {
		log.Fatalf("dial %s: %v", *server, err)
	}
	defer conn.Close()

	if err := wire.Send(conn, wire.TypeClientJoin, wire.EncodeClientJoin(wire.ClientJoin{
		DisplayName:  *name,
		Capabilities: wire.CapVideo | wire.CapColor,
	}), 0, false); err != nil {
		log.Fatalf("send CLIENT_JOIN: %v", err)
	}

	mode := wire.RenderForeground
	if *halfBlock {
		mode = wire.RenderHalfBlock
	}
	tier := wire.Color16
	if *color {
		tier = wire.ColorTrue
	}
	caps := wire.TerminalCaps{
		ColorTier:  tier,
		RenderMode: mode,
		UTF8:       true,
		Width:      uint32(*width),
		Height:     uint32(*height),
	}
	if err := wire.Send(conn, wire.TypeClientCapabilities, wire.EncodeTerminalCaps(caps), 0, false); err != nil {
		log.Fatalf("send CLIENT_CAPABILITIES: %v", err)
	}

	for {
		pkt, err := wire.Receive(conn, nil)
		if err != nil {
			log.Fatalf("connection closed: %v", err)
		}
		switch pkt.Type {
		case wire.TypeClearConsole:
			fmt.Fprint(os.Stdout, "\x1b[2J\x1b[H")
		case wire.TypeASCIIFrame:
			frame, err := wire.DecodeASCIIFrame(pkt.Payload)
			if err != nil {
				log.Printf("dropping ASCII_FRAME: %v", err)
				continue
			}
			fmt.Fprint(os.Stdout, "\x1b[H")
			os.Stdout.Write(frame.Payload)
		case wire.TypeServerState:
			// connected/active counts; nothing to render for a plain viewer.
		case wire.TypePong:
			// keepalive response, nothing to do.
		}
		pkt.Release()
	}
}
