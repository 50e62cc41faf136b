package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/theoremus-urban-solutions/gtfs-explorer/importer"
)

// DefaultSubjectPrefix prefixes every import progress subject.
const DefaultSubjectPrefix = "gtfs.imports"

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher fans import events out to NATS on <prefix>.<import id>.
type NATSPublisher struct {
	conn        Conn
	nc          *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("gtfs-explorer"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := NewPublisher(nc, prefix, logSubjects, m)
	p.nc = nc
	return p, nil
}

// NewPublisher publishes over an existing connection.
func NewPublisher(conn Conn, prefix string, logSubjects bool, m PublisherMetrics) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), logSubjects: logSubjects, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// Subject returns the subject events of importID are published on.
func (p *NATSPublisher) Subject(ev importer.Event) string {
	return fmt.Sprintf("%s.%s", p.prefix, subjectToken(ev.ImportID.String()))
}

// Publish implements importer.Sink.
func (p *NATSPublisher) Publish(ev importer.Event) error {
	subject := p.Subject(ev)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Printf("nats publish subject=%s type=%s total=%d", subject, ev.Type, ev.Total)
	}
	err = p.conn.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

var _ importer.Sink = (*NATSPublisher)(nil)
