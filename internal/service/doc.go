// Package service contains the application use cases: task admission
// against the bounded queue, embedding generation, and rerank scoring.
// Services receive their dependencies through constructor injection and
// translate collaborator failures into errors the transport and worker
// layers can act on.
package service
