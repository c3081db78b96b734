// Command feed runs the client state provider against a running API and
// prints a category feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"inkwell/internal/feed"
	"inkwell/internal/notifications"
)

func main() {
	apiURL := flag.String("api", "http://localhost:4001", "API base URL")
	categoryName := flag.String("category", "", "Only show blogs in this category")
	identifier := flag.String("login", "", "Email or phone to sign in with")
	password := flag.String("password", "", "Password for -login")
	watch := flag.Bool("watch", false, "Follow the notification channel and reprint on every blog event")
	flag.Parse()

	client, err := feed.NewClient(*apiURL)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *identifier != "" {
		user, err := client.Login(ctx, *identifier, *password)
		if err != nil {
			log.Fatalf("❌ Login failed: %v", err)
		}
		log.Printf("✅ Logged in as %s (%s)", user.Name, user.Role)
	}

	provider := feed.NewProvider(client, feed.Options{})
	provider.Start(ctx)
	printFeed(provider, *categoryName)

	if !*watch {
		return
	}

	unsubscribe := provider.Subscribe(func(feed.Snapshot) {
		printFeed(provider, *categoryName)
	})
	defer unsubscribe()

	room := notifications.FeedRoom
	if *categoryName != "" {
		room = notifications.CategoryRoom(*categoryName)
	}
	conn, err := client.Dial(ctx)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("👀 Watching room %s (Ctrl+C to stop)", room)
	if err := provider.Follow(ctx, conn, room); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func printFeed(p *feed.Provider, categoryName string) {
	snap := p.Snapshot()
	blogs := snap.Blogs
	if categoryName != "" {
		blogs = p.Category(categoryName)
	}

	who := "anonymous"
	if snap.Authenticated && snap.Profile != nil {
		who = snap.Profile.Name
	}
	fmt.Printf("\n📰 %d blogs (state=%s, viewer=%s, version=%d)\n", len(blogs), snap.State, who, snap.Version)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tCATEGORY\tWRITER\tTITLE")
	for _, b := range blogs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.CreatedAt.Format("2006-01-02 15:04"), b.Category, b.WriterName, b.Title)
	}
	_ = w.Flush()
}
