package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/ipv4"

	"github.com/socialgossip/gossipd/protocol"
	"github.com/socialgossip/gossipd/transfer"
)

// Reference client: keeps a control channel for request/response pairs and
// a private listener the server dials back as the message channel. Pushed
// texts, status notices and file-transfer probes all arrive on the message
// channel; chat room traffic arrives over multicast UDP.

const (
	downloadDir   = "downloads"
	multicastPort = 7080
)

type client struct {
	control net.Conn
	reader  *bufio.Reader
	name    string
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: client <host> <port>")
		fmt.Println("Example: client localhost 8000")
		os.Exit(1)
	}

	host, port := os.Args[1], os.Args[2]
	control, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		fmt.Printf("Error connecting to server: %v\n", err)
		os.Exit(1)
	}
	defer control.Close()

	// private listener for the server-initiated message channel
	messageLn, err := net.Listen("tcp", ":0")
	if err != nil {
		fmt.Printf("Error opening message listener: %v\n", err)
		os.Exit(1)
	}
	defer messageLn.Close()

	msgPort := messageLn.Addr().(*net.TCPAddr).Port
	if _, err := fmt.Fprintf(control, "%d\n", msgPort); err != nil {
		fmt.Printf("Error sending handshake: %v\n", err)
		os.Exit(1)
	}

	message, err := messageLn.Accept()
	if err != nil {
		fmt.Printf("Error accepting message channel: %v\n", err)
		os.Exit(1)
	}
	defer message.Close()

	fmt.Printf("Connected to %s:%s\n", host, port)
	fmt.Println("Type /help for available commands")

	c := &client{control: control, reader: bufio.NewReader(control)}
	go c.receiveLoop(message)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if quit := c.handleCommand(scanner.Text()); quit {
			break
		}
		fmt.Print("> ")
	}
}

func (c *client) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case "/help":
		printHelp()

	case "/register":
		if len(parts) < 3 {
			fmt.Println("Usage: /register <name> <language>")
			return false
		}
		if c.request(protocol.NewRegister(parts[1], parts[2])) {
			c.name = parts[1]
		}

	case "/login":
		if len(parts) < 2 {
			fmt.Println("Usage: /login <name>")
			return false
		}
		if c.request(protocol.NewLogin(parts[1])) {
			c.name = parts[1]
		}

	case "/lookup":
		if len(parts) < 2 {
			fmt.Println("Usage: /lookup <name>")
			return false
		}
		c.request(protocol.NewLookup(c.name, parts[1]))

	case "/friend":
		if len(parts) < 2 {
			fmt.Println("Usage: /friend <name>")
			return false
		}
		c.request(protocol.NewFriendship(c.name, parts[1]))

	case "/friends":
		c.request(protocol.NewFriendList(c.name))

	case "/msg":
		if len(parts) < 3 {
			fmt.Println("Usage: /msg <name> <text>")
			return false
		}
		text := protocol.NewText(c.name, parts[1], strings.Join(parts[2:], " "))
		c.request(protocol.NewMessageToFriend(text))

	case "/sendfile":
		if len(parts) < 3 {
			fmt.Println("Usage: /sendfile <name> <path>")
			return false
		}
		c.sendFile(parts[1], parts[2])

	case "/create":
		if len(parts) < 2 {
			fmt.Println("Usage: /create <room>")
			return false
		}
		if resp := c.roundTrip(protocol.NewCreateChatroom(c.name, parts[1])); resp != nil {
			joinGroup(resp.Address)
		}

	case "/join":
		if len(parts) < 2 {
			fmt.Println("Usage: /join <room>")
			return false
		}
		if resp := c.roundTrip(protocol.NewJoinChatroom(c.name, parts[1])); resp != nil {
			joinGroup(resp.Address)
		}

	case "/rooms":
		c.request(protocol.NewChatroomList(c.name))

	case "/roommsg":
		if len(parts) < 3 {
			fmt.Println("Usage: /roommsg <room> <text>")
			return false
		}
		text := protocol.NewText(c.name, parts[1], strings.Join(parts[2:], " "))
		c.request(protocol.NewChatroomMessage(parts[1], text))

	case "/close":
		if len(parts) < 2 {
			fmt.Println("Usage: /close <room>")
			return false
		}
		c.request(protocol.NewCloseChatroom(c.name, parts[1]))

	case "/quit":
		fmt.Println("Disconnecting...")
		return true

	default:
		fmt.Println("Unknown command, type /help")
	}
	return false
}

// request performs one round trip and prints the outcome.
func (c *client) request(req *protocol.Message) bool {
	return c.roundTrip(req) != nil
}

// roundTrip sends req on the control channel and returns the response, or
// nil on failure. Error statuses are printed, not returned.
func (c *client) roundTrip(req *protocol.Message) *protocol.Message {
	if err := protocol.WriteMessage(c.control, req); err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil
	}
	resp, err := protocol.ReadMessage(c.reader)
	if err != nil {
		fmt.Printf("Error reading response: %v\n", err)
		return nil
	}
	if resp.Status != protocol.StatusOK {
		fmt.Printf("Request failed: status %d\n", resp.Status)
		return nil
	}

	switch {
	case len(resp.List) > 0:
		for _, entry := range resp.List {
			fmt.Println("  " + entry)
		}
	case resp.Address != "":
		fmt.Printf("OK (%s)\n", resp.Address)
	case req.Op == protocol.OpLookup || req.Op == protocol.OpFriendship:
		if resp.Online {
			fmt.Println("OK (online)")
		} else {
			fmt.Println("OK (offline)")
		}
	default:
		fmt.Println("OK")
	}
	return resp
}

// sendFile negotiates a peer connection through the server, then streams
// the file directly to the receiver's private listener.
func (c *client) sendFile(target, path string) {
	if err := protocol.WriteMessage(c.control, protocol.NewFileToFriend(c.name, target)); err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return
	}
	resp, err := protocol.ReadMessage(c.reader)
	if err != nil {
		fmt.Printf("Error reading response: %v\n", err)
		return
	}
	if resp.Status != protocol.StatusOK {
		fmt.Printf("Transfer refused: status %d\n", resp.Status)
		return
	}

	peer, err := net.Dial("tcp", net.JoinHostPort(resp.Address, strconv.Itoa(resp.Port)))
	if err != nil {
		fmt.Printf("Error reaching peer: %v\n", err)
		return
	}
	defer peer.Close()

	if err := transfer.Send(peer, path); err != nil {
		fmt.Printf("Error sending file: %v\n", err)
		return
	}
	fmt.Printf("Sent %s to %s\n", path, target)
}

// receiveLoop consumes the message channel: pushed texts are printed, a
// peer-connection probe is answered with a fresh listener for the incoming
// file.
func (c *client) receiveLoop(message net.Conn) {
	r := bufio.NewReader(message)
	for {
		m, err := protocol.ReadMessage(r)
		if err != nil {
			fmt.Println("\n[Connection closed by server]")
			os.Exit(1)
		}

		switch m.Kind {
		case protocol.KindText:
			fmt.Printf("\n%s: %s\n> ", m.Sender, m.Body)

		case protocol.KindRequest:
			if m.Op != protocol.OpOpenPeerConn {
				continue
			}
			ack, ln := answerPeerProbe(m)
			if err := protocol.WriteMessage(message, ack); err != nil {
				fmt.Printf("\n[Error answering transfer request: %v]\n> ", err)
				if ln != nil {
					ln.Close()
				}
				continue
			}
			if ln != nil {
				go receiveFile(ln)
			}
		}
	}
}

// answerPeerProbe opens a one-shot listener for an incoming file and builds
// the response carrying its address. A nil listener means the probe failed.
func answerPeerProbe(probe *protocol.Message) (*protocol.Message, net.Listener) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return protocol.ErrorResponse(protocol.StatusFail, protocol.OpOpenPeerConn, probe.Sender), nil
	}

	addr := ln.Addr().(*net.TCPAddr)
	host := addr.IP.String()
	if addr.IP.IsUnspecified() {
		host = localAddress()
	}
	return protocol.PeerAck(probe.Receiver, probe.Sender, protocol.OpOpenPeerConn, host, addr.Port), ln
}

func receiveFile(ln net.Listener) {
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	name, err := transfer.Receive(bufio.NewReader(conn), downloadDir)
	if err != nil {
		fmt.Printf("\n[File receive failed: %v]\n> ", err)
		return
	}
	fmt.Printf("\n[Received file %s]\n> ", name)
}

// localAddress guesses the outbound interface address for peer listeners
// bound to the wildcard.
func localAddress() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// joinGroup subscribes to a chat room's multicast group and prints its
// traffic.
func joinGroup(group string) {
	ip := net.ParseIP(group)
	if ip == nil {
		return
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", multicastPort))
	if err != nil {
		fmt.Printf("Error joining room group: %v\n", err)
		return
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(nil, &net.UDPAddr{IP: ip}); err != nil {
		fmt.Printf("Error joining room group: %v\n", err)
		conn.Close()
		return
	}

	go func() {
		defer conn.Close()
		buf := make([]byte, 64*1024)
		for {
			n, _, _, err := p.ReadFrom(buf)
			if err != nil {
				return
			}
			m, err := protocol.Decode(buf[:n])
			if err != nil || m.Kind != protocol.KindText {
				continue
			}
			fmt.Printf("\n[%s] %s: %s\n> ", m.Receiver, m.Sender, m.Body)
		}
	}()
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /register <name> <language>   create an account and sign in")
	fmt.Println("  /login <name>                 sign in")
	fmt.Println("  /lookup <name>                check whether a user exists and is online")
	fmt.Println("  /friend <name>                add a friend")
	fmt.Println("  /friends                      list friends")
	fmt.Println("  /msg <name> <text>            message a friend")
	fmt.Println("  /sendfile <name> <path>       send a file to a friend")
	fmt.Println("  /create <room>                create a chat room")
	fmt.Println("  /join <room>                  join a chat room")
	fmt.Println("  /rooms                        list chat rooms")
	fmt.Println("  /roommsg <room> <text>        message a chat room")
	fmt.Println("  /close <room>                 close a chat room")
	fmt.Println("  /quit                         disconnect")
}
