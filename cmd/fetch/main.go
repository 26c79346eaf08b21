package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	gemini "git.sr.ht/~arv/go-gemini"
)

func main() {
	maxRedirects := flag.Int("r", 5, "maximum redirects to follow")
	certFile := flag.String("cert", "", "client certificate file")
	keyFile := flag.String("key", "", "client key file")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] url\n", os.Args[0])
		os.Exit(2)
	}

	client := gemini.NewClient(*maxRedirects, *certFile, *keyFile)
	res, err := client.Fetch(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("status: %d\nmeta: %s\n", res.Status, res.Meta)
	switch {
	case res.Cert.IsVerified:
		fmt.Println("server certificate: verified")
	case res.Cert.IsSelfSigned:
		fmt.Println("server certificate: self-signed")
	case res.Cert.HasCertificate:
		fmt.Println("server certificate: presented, not verified")
	}

	if res.Body != nil {
		defer res.Body.Close()
		if _, err := io.Copy(os.Stdout, res.Body); err != nil {
			log.Fatal(err)
		}
	}
}
