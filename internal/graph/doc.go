/*
Graph stores work items and their dependencies.

# Module
  - store: insertion ordered arena, status lifecycle, run guard
  - planner: level partition over a snapshot

# Acyclic
  - a dependency must exist before its dependent is added
*/
package graph
