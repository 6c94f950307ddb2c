package main

import (
	"context"
	crypto_tls "crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arisu/internal/capture"
	"arisu/internal/counter"
	"arisu/internal/credential"
	"arisu/internal/input"
	"arisu/internal/server"
	"arisu/internal/session"
	tlsutil "arisu/internal/tls"
)

var (
	flagAddr     = flag.String("addr", "127.0.0.1:8080", "HTTP listen address")
	flagUsername = flag.String("username", "user", "Username for HTTP basic auth")
	flagPassword = flag.String("password", "user", "Password for HTTP basic auth")
	flagStats    = flag.Bool("stats", false, "Log pipeline stats every 5 seconds")
	flagTLS      = flag.Bool("tls", false, "Enable TLS with auto-generated self-signed certificate")
	flagTLSCert  = flag.String("tls-cert", "", "Path to TLS certificate file (PEM)")
	flagTLSKey   = flag.String("tls-key", "", "Path to TLS private key file (PEM)")
)

func main() {
	flag.Parse()

	if (*flagTLSCert != "") != (*flagTLSKey != "") {
		log.Fatal("--tls-cert and --tls-key must both be set")
	}

	var tlsConfig *crypto_tls.Config
	if *flagTLSCert != "" {
		tc, err := tlsutil.LoadIdentity(*flagTLSCert, *flagTLSKey)
		if err != nil {
			log.Fatalf("load TLS identity: %v", err)
		}
		tlsConfig = tc
	} else if *flagTLS {
		tc, err := tlsutil.SelfSigned()
		if err != nil {
			log.Fatalf("self-signed cert: %v", err)
		}
		tlsConfig = tc
	}

	native, err := capture.NewSession()
	if err != nil {
		log.Fatalf("capture session: %v", err)
	}

	captureCounter := counter.New()
	sendCounter := counter.New()

	cap, actor := capture.New(native, captureCounter, sendCounter)

	ctx, cancel := context.WithCancel(context.Background())
	actorDone := make(chan struct{})
	go func() {
		defer close(actorDone)
		actor.Run(ctx)
	}()

	newInputHandler := func() (session.InputHandler, error) {
		inj, err := input.NewInjector()
		if err != nil {
			return nil, err
		}
		return input.NewTranslator(cap.SizeCell(), inj), nil
	}

	srv := server.New(server.Config{
		Addr:  *flagAddr,
		TLS:   tlsConfig,
		Creds: credential.NewChecker(*flagUsername, *flagPassword),
		Stats: *flagStats,

		Display: cap,
		Sound:   cap.SoundHandler(),
		Events:  cap,

		NewInputHandler: newInputHandler,

		CaptureInterval: captureCounter.Interval(),
		SendInterval:    sendCounter.Interval(),
	})

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %s, shutting down...", sig)
		srv.Teardown()
		cancel()
		<-actorDone
		os.Exit(0)
	}()

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
