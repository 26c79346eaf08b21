package main

import (
	"log"

	gemini "git.sr.ht/~arv/go-gemini"
	"github.com/spf13/viper"
)

func main() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/capsule/")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Fatal error config file: %v", err)
	}
	viper.SetDefault("addr", ":1965")
	viper.SetDefault("root", ".")

	server := gemini.NewServer(
		viper.GetBool("reuse_addr"),
		viper.GetBool("reuse_port"),
		viper.GetString("cert_file"),
		viper.GetString("key_file"),
		viper.GetString("session_id"),
	)
	server.Addr = viper.GetString("addr")
	server.Handler = gemini.FileServer(viper.GetString("root"))

	log.Printf("Serving %v on %v", viper.GetString("root"), server.Addr)
	log.Fatal(server.ListenAndServe())
}
