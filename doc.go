// Package safetyrag retrieves and ranks safety documents for free-text queries.
//
// The corpus holds two kinds of documents: protocols from an emergency
// guidebook and historical incident reports. An Engine owns the document
// store and an optional AI provider, and hands out the components built on
// them:
//
//	engine, err := safetyrag.Open("./safetyrag_db")
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	searcher, err := engine.NewSearcher()
//	results, err := searcher.Search(ctx, "gasoline fire", 5)
//
// Searches score documents lexically by default. When an embedding service
// is configured, documents are ranked by cosine similarity instead, and the
// searcher falls back to lexical scoring whenever the service is unavailable.
package safetyrag
