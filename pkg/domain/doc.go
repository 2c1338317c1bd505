// Package domain builds the boolean filter expressions ("domains") used to
// select template records, and the orderings applied to the results.
//
// A domain is a tree of [Cond] leaves combined with [And] and [Or]. The same
// tree can be evaluated in memory with [Match] or rendered to a
// parameterized SQL WHERE clause with [SQL]:
//
//	d := domain.AND(
//		domain.Eq("key", "website.layout"),
//		domain.In("website_id", nil, 5),
//	)
//	where, args := domain.SQL(d)
//	// where: ("key" = ? AND ("website_id" IS NULL OR "website_id" IN (?)))
//	// args:  [website.layout [5]]
//
// A nil value stands for SQL NULL, i.e. an unset reference.
package domain
