package deploy

// buildRoutingTable turns the flattened link list into a RoutingTable:
// one entry per (source instance, out-port), destinations kept in link
// order so publish-order delivery only needs the router to walk the
// table in order.
func buildRoutingTable(links []FlatLink) RoutingTable {
	table := make(RoutingTable)
	for _, link := range links {
		key := RouteKey{Instance: link.From.Instance, Port: link.From.Port}
		table[key] = append(table[key], link.To)
	}
	return table
}
