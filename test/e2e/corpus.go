// Package e2e provides end-to-end tests that chunk a corpus and rerank its chunks for many queries.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/chunkrank/internal/models"
)

// E2EDocument is a document entry in the E2E corpus (id, title, content).
type E2EDocument struct {
	ID      string
	Title   string
	Content string
}

// QueryTestCase defines a query and the document ID(s) that must appear in the reranked top results.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

type topic struct {
	title   string
	phrase  string
	content string
}

// Each phrase is shared in full by exactly one document; other documents carry at most one of its words.
var topics = []topic{
	{"Chunking Strategy", "chunking overlap", "Chunking splits long documents into passages. Chunking overlap keeps context that crosses a passage boundary."},
	{"Reranking", "reranking candidates", "Reranking reorders search hits with extra signals. Reranking candidates combines distance with keyword evidence."},
	{"Embedding Models", "embedding vectors", "Embedding models map text to dense numeric arrays. Embedding vectors place similar passages close together."},
	{"Vector Store", "vector store", "A vector store keeps embeddings for nearest neighbour lookup. The vector store answers queries by distance."},
	{"Cosine Distance", "cosine distance", "Cosine distance compares the angle between two embeddings. Cosine distance ranges from zero to two."},
	{"PDF Extraction", "pdf extraction", "PDF extraction pulls text out of page content streams. PDF extraction loses layout but keeps reading order."},
	{"Text Cleaning", "cleaning noise", "Text cleaning removes running headers and page numbers. Cleaning noise before chunking improves retrieval."},
	{"Stop Words", "stop words", "Stop words are frequent terms with little meaning. Stop words are ignored when measuring keyword overlap."},
	{"Prompt Templates", "prompt template", "A prompt template frames the question and the retrieved passages. The prompt template asks the model to cite sources."},
	{"Answer Evaluation", "answer evaluation", "Answer evaluation grades responses on accuracy and coverage. Answer evaluation penalizes invented claims."},
	{"Hallucination", "hallucination grounding", "Hallucination is an unsupported claim in a generated answer. Hallucination grounding checks every statement against the context."},
	{"Citations", "citation format", "Citations point readers to the source passage. A consistent citation format names the document and page."},
	{"Contrato de Arrendamiento", "arrendamiento fianza", "El contrato de arrendamiento regula el alquiler de una vivienda. El arrendamiento exige una fianza de dos mensualidades."},
	{"Cláusula de Confidencialidad", "confidencialidad información", "La cláusula de confidencialidad protege los secretos de la empresa. El deber de confidencialidad sobre la información dura cinco años."},
	{"Protección de Datos", "datos personales", "La protección de datos exige una base legal para cada tratamiento. Los datos personales solo se tratan con consentimiento."},
	{"Factura Electrónica", "factura electrónica", "La factura electrónica sustituye al papel en las empresas. Toda factura electrónica incluye un código de verificación."},
	{"Nómina", "nómina salario", "La nómina detalla las retenciones del trabajador. El salario bruto de la nómina incluye los complementos."},
	{"Kubernetes", "kubernetes pods", "Kubernetes schedules containers onto nodes. Kubernetes pods group containers that share a network namespace."},
	{"Docker Images", "docker images", "Docker builds portable application bundles. Docker images are layered and cached between builds."},
	{"PostgreSQL", "postgresql indexes", "PostgreSQL is a relational database. PostgreSQL indexes speed up lookups on large tables."},
	{"Redis", "redis cache", "Redis keeps data in memory. A redis cache stores sessions and hot keys."},
	{"Kafka", "kafka topics", "Kafka is a distributed event log. Kafka topics are split into partitions for throughput."},
	{"gRPC", "grpc protobuf", "gRPC is a remote procedure call framework. gRPC uses protobuf messages over HTTP/2."},
	{"OAuth", "oauth tokens", "OAuth delegates access without sharing passwords. OAuth tokens expire and can be refreshed."},
	{"TLS Certificates", "tls certificates", "TLS encrypts traffic between client and server. TLS certificates prove the identity of the server."},
	{"Load Balancing", "load balancer", "A load balancer spreads requests across servers. The load balancer removes unhealthy servers from rotation."},
	{"Rate Limiting", "rate limiting", "Rate limiting protects public APIs from bursts. Rate limiting counts requests per client."},
	{"Structured Logging", "structured logging", "Structured logging writes key-value fields. Structured logging makes production debugging easier."},
	{"Graceful Shutdown", "graceful shutdown", "Graceful shutdown drains open connections. Graceful shutdown handles the termination signal."},
	{"Unit Testing", "unit tests", "Unit tests check one function at a time. Unit tests run fast and catch regressions."},
}

// BuildCorpus returns one document per topic and one query test case per document.
// Each document has a unique signature phrase so queries can assert the correct doc is returned.
func BuildCorpus() *Corpus {
	docs := buildDocuments()
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

func buildDocuments() []E2EDocument {
	out := make([]E2EDocument, 0, len(topics))
	for i, t := range topics {
		out = append(out, E2EDocument{
			ID:      fmt.Sprintf("e2e-doc-%03d", i+1),
			Title:   t.title,
			Content: t.content,
		})
	}
	return out
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	var cases []QueryTestCase
	used := make(map[string]bool)
	for _, t := range topics {
		for _, d := range docs {
			if containsPhrase(d, t.phrase) && !used[d.ID] {
				cases = append(cases, QueryTestCase{
					Query:          t.phrase,
					ExpectedDocIDs: []string{d.ID},
					Description:    fmt.Sprintf("query %q should return doc %s", t.phrase, d.ID),
				})
				used[d.ID] = true
				break
			}
		}
	}
	return cases
}

// containsPhrase reports whether every word of phrase occurs in the document, ignoring case.
func containsPhrase(d E2EDocument, phrase string) bool {
	text := strings.ToLower(d.Title + " " + d.Content)
	for _, w := range strings.Fields(strings.ToLower(phrase)) {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// ToDocumentInputs converts the corpus documents to models.DocumentInput for chunking.
func (c *Corpus) ToDocumentInputs() []*models.DocumentInput {
	out := make([]*models.DocumentInput, len(c.Documents))
	for i := range c.Documents {
		d := &c.Documents[i]
		out[i] = &models.DocumentInput{
			ID:      d.ID,
			Title:   d.Title,
			Content: d.Content,
		}
	}
	return out
}

// Candidates turns every chunk of results into a rerank candidate at the given distance,
// the way a vector search that cannot tell the chunks apart would return them.
func Candidates(results []*models.IngestResult, distance float64) []*models.Candidate {
	var out []*models.Candidate
	for _, res := range results {
		for _, ch := range res.Chunks {
			out = append(out, &models.Candidate{
				Text:     ch.Chunk.Text,
				Distance: distance,
				Metadata: ch.Metadata,
			})
		}
	}
	return out
}
