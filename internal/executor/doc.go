/*
Executor runs a work item graph level by level.

# Module
  - executor: plan, dispatch a level, barrier, next level
  - group: bounded fan-out inside one level
  - summary: per item outcome of a run

# Source
  - work items from graph store
  - payload execution from strategy

# Produce
  - one notification per settled item to bus
  - run summary to audit
*/
package executor
