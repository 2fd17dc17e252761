package jsonquery_test

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nonibytes/jsonquery/jsonquery"
)

func ExampleGetQuery_Apply() {
	records := []any{
		map[string]any{"name": "Apple", "rating": 4},
		map[string]any{"name": "Banana", "rating": 5},
		map[string]any{"name": "Cherry", "rating": 3},
	}

	q, err := jsonquery.ParseGetQuery([]byte(`{
		"filter": {"type": "longRange", "field": "rating", "min": 4},
		"sortOrder": ["-rating"],
		"fields": ["name"]
	}`))
	if err != nil {
		log.Fatal(err)
	}
	res, err := q.Apply(records, jsonquery.Options{})
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range res {
		b, _ := json.Marshal(r)
		fmt.Println(string(b))
	}
	// Output:
	// {"name":"Banana"}
	// {"name":"Apple"}
}

func ExampleGetQuery_Merge() {
	base, _ := jsonquery.FromJSON([]byte(`{"limit":10,"sortOrder":["-rating"]}`))
	user, _ := jsonquery.FromJSON([]byte(`{"limit":50,"sortOrder":["name"],"filter":{"type":"boolean","field":"inStock","value":true}}`))

	base.Merge(user)
	b, _ := json.Marshal(base)
	fmt.Println(string(b))
	// Output:
	// {"limit":10,"sortOrder":["-rating","+name"],"filter":{"type":"boolean","field":"inStock","value":true}}
}

func ExampleGetQuery_QueryString() {
	q, _ := jsonquery.FromJSON([]byte(`{"limit":10,"offset":20,"sortOrder":["-rating"]}`))
	s, ok, _ := q.QueryString()
	fmt.Println(ok, s)
	// Output:
	// true limit=10&offset=20&sort=-rating
}
