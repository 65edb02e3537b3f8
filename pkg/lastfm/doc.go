// Package lastfm provides a client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements the parts of the Last.fm API a scrobbler needs:
// authentication, now playing updates, and scrobble submission. It provides
// a type-safe API with context support, structured errors, and retry logic
// for transient failures.
//
// # Quick Start
//
// Create a client with your API credentials:
//
//	import "github.com/scrobd/scrobd/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// Last.fm uses a token-based authorization flow:
//
//  1. Request a token with GetToken.
//  2. Direct the user to AuthURL(token) to authorize it.
//  3. Exchange the token for a session key with GetSession.
//  4. Store the session key; it does not expire.
//
// Example:
//
//	token, err := client.GetToken(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Please visit:", client.AuthURL(token))
//	fmt.Print("Press enter after authorizing...")
//	fmt.Scanln()
//
//	session, err := client.GetSession(ctx, token)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetSessionKey(session.Key)
//
// # Scrobbling
//
// Once a session key is set, tracks can be announced and scrobbled:
//
//	track := lastfm.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	    Album:  "Help!",
//	}
//	_, err := client.UpdateNowPlaying(ctx, track)
//
//	resp, err := client.Scrobble(ctx, []lastfm.Scrobble{
//	    {Track: track, Timestamp: time.Now().Add(-2 * time.Minute)},
//	})
//	fmt.Printf("accepted %d, ignored %d\n", resp.Accepted, resp.Ignored)
//
// # Error Handling
//
// API failures are returned as *Error carrying the Last.fm error code:
//
//	var apiErr *lastfm.Error
//	if errors.As(err, &apiErr) && apiErr.Temporary() {
//	    // retry later
//	}
//
// # Last.fm API Documentation
//
// For more information about the Last.fm API:
// https://www.last.fm/api/scrobbling
package lastfm
