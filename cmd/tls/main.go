//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/markkurossi/tlswire/crypto/tls"
)

func main() {
	fDebug := flag.Bool("d", false, "debug output")
	flag.Parse()

	if len(flag.Args()) != 1 {
		log.Fatalf("no target specified")
	}

	target := flag.Args()[0]

	c, err := net.Dial("tcp", target)
	if err != nil {
		log.Fatal(err)
	}
	config := &tls.Config{}
	if *fDebug {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
		config.Logger = &logger
	}
	idx := strings.IndexByte(target, ':')
	if idx > 0 {
		config.ServerName = target[:idx]
	}

	conn := tls.Client(c, config)

	tsStart := time.Now()

	err = conn.Handshake()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("version  : %v\n", conn.Version())
	if cert := conn.PeerCertificate(); cert != nil {
		fmt.Printf("peer cert: %v\n", cert.Subject)
	}

	tsHandshake := time.Now()

	_, err = conn.Write([]byte("Hello, world!\n"))
	if err != nil {
		log.Fatal(err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("read: %s\n", string(buf[:n]))
	err = conn.Close()
	if err != nil {
		log.Fatal(err)
	}

	tsEnd := time.Now()

	fmt.Printf("handshake: %v\n", tsHandshake.Sub(tsStart))
	fmt.Printf("req/resp : %v\n", tsEnd.Sub(tsHandshake))
	fmt.Printf("roundtrip: %v\n", tsEnd.Sub(tsStart))
}
