package mqtt

import "strings"

// Handler processes one inbound message on the cooperative loop. It never
// runs on the driver's callback goroutine (§5): messages are parked in an
// inbound queue and drained by Client.Tick.
type Handler func(topic string, payload []byte)

type route struct {
	pattern string
	segs    []string
	handler Handler
}

// Router maps wildcard topic patterns ('+' single segment, '#' terminal
// multi-segment) to handlers. On an inbound message, the longest-specific
// matching pattern wins; ties keep registration order (§4.6).
type Router struct {
	routes []route
}

func NewRouter() *Router { return &Router{} }

func (r *Router) Register(pattern string, h Handler) {
	r.routes = append(r.routes, route{pattern: pattern, segs: strings.Split(pattern, "/"), handler: h})
}

// Dispatch finds the best-matching route for topic and invokes it. It
// reports whether any route matched.
func (r *Router) Dispatch(topic string, payload []byte) bool {
	topicSegs := strings.Split(topic, "/")
	best := -1
	bestSpecificity := -1
	for i, rt := range r.routes {
		spec, ok := match(rt.segs, topicSegs)
		if !ok {
			continue
		}
		if spec > bestSpecificity {
			bestSpecificity = spec
			best = i
		}
	}
	if best < 0 {
		return false
	}
	r.routes[best].handler(topic, payload)
	return true
}

// match reports whether pattern matches topic segments, and a specificity
// score (count of literal segment matches) used to break ties between
// overlapping wildcard patterns. '#' must be the final pattern segment.
func match(pattern, topic []string) (int, bool) {
	specificity := 0
	pi := 0
	for pi < len(pattern) {
		seg := pattern[pi]
		if seg == "#" {
			return specificity, true
		}
		if pi >= len(topic) {
			return 0, false
		}
		if seg == "+" {
			// wildcard segment, no specificity credit
		} else if seg == topic[pi] {
			specificity++
		} else {
			return 0, false
		}
		pi++
	}
	if pi != len(topic) {
		return 0, false
	}
	return specificity, true
}
