package flow

// Index is the directed adjacency of a connection list. It is built once and
// only read afterwards, so it is safe to share between goroutines.
type Index struct {
	connections []Connection
	forward     map[string][]string
}

// BuildIndex appends every target to its source's list in input order.
// Duplicate edges are kept: they are authored branches.
func BuildIndex(connections []Connection) *Index {
	idx := &Index{
		connections: make([]Connection, len(connections)),
		forward:     make(map[string][]string),
	}
	copy(idx.connections, connections)
	for _, conn := range idx.connections {
		idx.forward[conn.Source] = append(idx.forward[conn.Source], conn.Target)
	}
	return idx
}

// TargetsOf returns the outgoing targets of id in edge order. The returned
// slice must not be modified.
func (idx *Index) TargetsOf(id string) []string {
	targets, ok := idx.forward[id]
	if !ok {
		return []string{}
	}
	return targets
}

// SourcesOf scans every connection and returns the sources pointing at id,
// in connection order.
func (idx *Index) SourcesOf(id string) []string {
	sources := []string{}
	for _, conn := range idx.connections {
		if conn.Target == id {
			sources = append(sources, conn.Source)
		}
	}
	return sources
}

func (idx *Index) Connections() []Connection {
	out := make([]Connection, len(idx.connections))
	copy(out, idx.connections)
	return out
}

func (idx *Index) Len() int {
	return len(idx.connections)
}
