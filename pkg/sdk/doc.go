// Package drillscout embeds the drill search and recommendation pipeline
// in a Go program, reading the same Valkey or Redis catalog as the HTTP service.
//
//	client, _ := drillscout.New(ctx,
//	    drillscout.WithValkey("localhost:6379", ""),
//	    drillscout.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, drillscout.SearchQuery{Text: "hip rotation", Limit: 10},
//	    drillscout.Requester{Role: "player"})
//	recs, _ := client.Recommend(ctx, "player_42", drillscout.Requester{Role: "coach"})
//
// Without an embedder, search stays lexical and non-matching queries fall back to the listing.
package drillscout
