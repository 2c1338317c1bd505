package domain_test

import (
	"fmt"

	"github.com/sitekit/viewscope/pkg/domain"
)

// ExampleSQL renders the scope used to find the templates a website can see.
func ExampleSQL() {
	d := domain.AND(
		domain.Eq("key", "website.layout"),
		domain.In("website_id", nil, 5),
	)
	where, args := domain.SQL(d)
	fmt.Println(where)
	fmt.Println(args)

	// Output:
	// ("key" = ? AND ("website_id" IS NULL OR "website_id" IN (?)))
	// [website.layout [5]]
}

func ExampleStripField() {
	d := domain.AND(domain.Eq("inherit_id", 3), domain.Eq("active", true))
	fmt.Println(domain.String(domain.StripField(d, "active")))

	// Output:
	// inherit_id = 3
}
