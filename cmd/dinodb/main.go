package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"dinodb/pkg/config"
	"dinodb/pkg/engine"
	"dinodb/pkg/repl"
	"dinodb/pkg/txid"

	"github.com/google/uuid"
)

// DefaultPort is the port dinodb listens on in server mode.
const DefaultPort int = 8335

func setupCloseHandler(db *engine.Engine) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("closehandler invoked")
		db.Close()
		os.Exit(0)
	}()
}

// startServer listens on port, running the REPL over each accepted
// connection with the connection's own client id doubling as its
// transaction id. Any transaction still open when the client
// disconnects is aborted.
func startServer(r *repl.REPL, db *engine.Engine, prompt string, port int) {
	handleConn := func(c net.Conn) {
		clientID := uuid.New()
		defer c.Close()
		defer func() {
			if db.Tx.Active(txid.ID(clientID)) {
				db.Tx.Abort(txid.ID(clientID))
			}
		}()
		r.Run(clientID, prompt, c, c)
	}
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%v server started listening on localhost:%v\n", config.DBName,
		listener.Addr().(*net.TCPAddr).Port)
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Print(err)
			continue
		}
		go handleConn(conn)
	}
}

func main() {
	promptFlag := flag.Bool("c", true, "use prompt?")
	dbFlag := flag.String("db", "data/", "DB folder")
	portFlag := flag.Int("p", DefaultPort, "port number")
	serverFlag := flag.Bool("server", false, "run as a TCP server instead of a local REPL")
	bufferPagesFlag := flag.Int("buffer-pages", config.DefaultBufferPoolPages, "buffer pool capacity, in pages")
	flag.Parse()

	db, err := engine.Open(*dbFlag, *bufferPagesFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	setupCloseHandler(db)

	prompt := config.GetPrompt(*promptFlag)
	r := db.Repl()

	if *serverFlag {
		startServer(r, db, prompt, *portFlag)
	} else {
		r.Run(uuid.New(), prompt, nil, nil)
	}
}
