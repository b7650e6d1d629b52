/* workerpool contains code to run named queues of error handling goroutines, each with its own concurrency limit.
 *
 * Copyright 2020 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 *     Unless required by applicable law or agreed to in writing, software
 *     distributed under the License is distributed on an "AS IS" BASIS,
 *     WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *     See the License for the specific language governing permissions and
 *     limitations under the License.
 */
package workerpool

import (
	"fmt"
	"sort"
	"sync"
)

// MultiErr contains multiple errors.
type MultiErr []error

// Error returns a string representation of the multi error.
func (m MultiErr) Error() string {
	return fmt.Sprint([]error(m))
}

// Unwrap makes errors.Is and errors.As look at every contained error.
func (m MultiErr) Unwrap() []error {
	return m
}

type queue struct {
	jobs chan func() error
	done chan struct{}

	lock   sync.Mutex
	errors MultiErr
}

func (q *queue) run(concurrency int) {
	wg := &sync.WaitGroup{}
	tickets := make(chan struct{}, concurrency)
	for jobVar := range q.jobs {
		job := jobVar
		if concurrency > 0 {
			tickets <- struct{}{}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := job()
			if concurrency > 0 {
				<-tickets
			}
			if err != nil {
				q.lock.Lock()
				q.errors = append(q.errors, err)
				q.lock.Unlock()
			}
		}()
	}
	wg.Wait()
	close(q.done)
}

// WorkerPool runs jobs in named queues. A queue with concurrency 0 is unlimited.
type WorkerPool struct {
	queues map[string]*queue
}

// New returns a worker pool with one queue per entry in concurrency.
func New(concurrency map[string]int) *WorkerPool {
	w := &WorkerPool{
		queues: map[string]*queue{},
	}
	for name, limit := range concurrency {
		q := &queue{
			jobs: make(chan func() error),
			done: make(chan struct{}),
		}
		w.queues[name] = q
		go q.run(limit)
	}
	return w
}

func (w *WorkerPool) queue(name string) *queue {
	q, found := w.queues[name]
	if !found {
		panic(fmt.Errorf("no queue named %q", name))
	}
	return q
}

// Queue runs f in the named queue, blocking while the queue is at its limit.
func (w *WorkerPool) Queue(name string, f func() error) {
	w.queue(name).jobs <- f
}

// Close stops the named queue from accepting jobs.
func (w *WorkerPool) Close(name string) {
	close(w.queue(name).jobs)
}

// Wait waits until the named queue is closed and all its jobs are finished, and returns their errors.
func (w *WorkerPool) Wait(name string) error {
	q := w.queue(name)
	<-q.done
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.errors) == 0 {
		return nil
	}
	return q.errors
}

// WaitAll waits for every queue, see Wait, and returns the errors of all of them.
func (w *WorkerPool) WaitAll() error {
	names := []string{}
	for name := range w.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	me := MultiErr{}
	for _, name := range names {
		if err := w.Wait(name); err != nil {
			me = append(me, err.(MultiErr)...)
		}
	}
	if len(me) == 0 {
		return nil
	}
	return me
}
