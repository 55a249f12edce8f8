// Package dedup decides whether a topic candidate duplicates prior work.
//
// Checks run in fixed order of increasing cost and decreasing certainty:
// exact source-video id, fuzzy slug similarity, semantic theme judgment, and
// the topic-history window. Every "treat failure as duplicate" decision lives
// in the Policy table so the business-risk tradeoffs stay in one auditable
// place.
package dedup
