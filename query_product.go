package ecoscope

import "strings"

// Product finds the first product, in discovery order, whose name contains
// name ignoring case. A match lists every member repo and the downstream
// consumers whose product field contains the product's name. A miss returns
// all product names in Available.
func (q *QueryBuilder) Product(name string) *ProductResult {
	name = strings.TrimSpace(name)
	res := &ProductResult{Query: name}

	for _, pn := range q.idx.productNames {
		if !Contains(pn, name) {
			continue
		}
		p := q.idx.products[pn]
		res.Matched = true
		res.Product = &p
		res.Members = q.idx.productMembers[pn]
		for _, c := range q.idx.consumers {
			if Contains(c.Product, pn) {
				res.Consumers = append(res.Consumers, c)
			}
		}
		return res
	}

	res.Available = append([]string{}, q.idx.productNames...)
	return res
}
