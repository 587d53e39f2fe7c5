package jobs

import "fmt"

// enqueueUnits routes work units to the appropriate pool queues.
func (s *Scheduler) enqueueUnits(jobID string, units []WorkUnit) {
	if len(units) == 0 {
		return
	}

	s.mu.Lock()
	s.pending[jobID] += len(units)
	s.mu.Unlock()

	for i := range units {
		unit := &units[i]
		unit.JobID = jobID
		if unit.Priority == 0 && unit.Metrics != nil {
			unit.Priority = PriorityForStage(unit.Metrics.Stage)
		}

		pool := s.findPool(unit)
		if pool == nil {
			s.logger.Error("no pool found for work unit",
				"unit_id", unit.ID,
				"type", unit.Type,
				"provider", unit.Provider,
			)
			s.results <- workerResult{
				JobID: jobID,
				Unit:  unit,
				Result: WorkResult{
					WorkUnitID: unit.ID,
					Success:    false,
					Error:      fmt.Errorf("no pool available for type %s provider %s", unit.Type, unit.Provider),
				},
			}
			continue
		}

		if err := pool.Submit(unit); err != nil {
			s.logger.Warn("failed to submit to pool", "pool", pool.Name(), "error", err)
			s.results <- workerResult{
				JobID: jobID,
				Unit:  unit,
				Result: WorkResult{
					WorkUnitID: unit.ID,
					Success:    false,
					Error:      err,
				},
			}
		}
	}

	s.logger.Debug("enqueued work units", "job_id", jobID, "count", len(units))
}

// findPool selects the pool for a work unit. CPU units go to the CPU
// pool. LLM units go to the named provider pool, or any LLM pool when
// no provider is requested.
func (s *Scheduler) findPool(unit *WorkUnit) WorkerPool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if unit.Type == WorkUnitTypeCPU {
		if s.cpuPool == nil {
			return nil
		}
		return s.cpuPool
	}

	if unit.Provider != "" {
		if p, ok := s.pools[unit.Provider]; ok && p.Type() == PoolTypeLLM {
			return p
		}
		return nil
	}

	for _, p := range s.pools {
		if p.Type() == PoolTypeLLM {
			return p
		}
	}

	return nil
}
