// Package answer turns ranked search results into a prose answer.
//
// A Composer asks an ai.Generator to answer the query from the top results
// and caches accepted answers for a TTL. When no generator is configured,
// generation fails, or the response is too short to be useful, the answer is
// built from fixed templates instead. The same Composer summarizes several
// documents together, falling back to an extractive summary.
//
// CompareResponseTimes benchmarks the response times of similar incidents
// against industry standards, and a RiskAnalyzer rates incident descriptions
// on a 1 to 5 severity scale with predictive insights.
package answer
