package domain

// Sender delivers a rendered email. Delivery is single-attempt; retry
// policy, if any, belongs to the implementation behind this port.
type Sender interface {
	Send(to, subject, html string) error
}

// Renderer renders a named email template with the given model.
type Renderer interface {
	Render(name string, data any) (string, error)
}
