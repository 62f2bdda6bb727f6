package main

import (
	"fmt"
	"os"

	"github.com/chatjam/chatjam/internal/push"
)

// Generates a VAPID key pair for CHATJAM_VAPID_PUBLIC_KEY and
// CHATJAM_VAPID_PRIVATE_KEY.
func main() {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("CHATJAM_VAPID_PUBLIC_KEY=%s\n", pub)
	fmt.Printf("CHATJAM_VAPID_PRIVATE_KEY=%s\n", priv)
}
