/*******************************************************************************
*
* Copyright 2024 Instructure, Inc.
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

package importer

// volatileTables lists tables whose natural keys are either composite or
// unstable across dumps, and which must therefore be fully dropped and
// rebuilt on every run rather than merged via delete-then-insert.
var volatileTables = map[string]bool{
	"module_completion_requirement_fact":             true,
	"module_fact":                                    true,
	"module_item_fact":                               true,
	"module_prerequisite_fact":                       true,
	"module_progression_completion_requirement_fact": true,
	"module_progression_fact":                        true,
	"quiz_fact":                                       true,
	"quiz_question_answer_fact":                       true,
	"quiz_question_fact":                              true,
	"quiz_question_group_fact":                        true,
	"quiz_submission_fact":                            true,
	"quiz_submission_historical_fact":                 true,
	"module_completion_requirement_dim":               true,
	"module_dim":                                       true,
	"module_item_dim":                                  true,
	"module_prerequisite_dim":                          true,
	"module_progression_completion_requirement_dim":   true,
	"module_progression_dim":                           true,
	"quiz_dim":                                         true,
	"quiz_question_answer_dim":                         true,
	"quiz_question_dim":                                true,
	"quiz_question_group_dim":                          true,
	"quiz_submission_dim":                              true,
	"quiz_submission_historical_dim":                   true,
	"submission_comment_participant_dim":               true,
	"requests":                                         true,
	"assignment_override_user_rollup_fact":             true,
	"enrollment_rollup_dim":                            true,
}

// isVolatile reports whether table must always be dropped and rebuilt,
// either because it's a member of the static volatile set or because the
// current run has every table forced volatile (allVolatile).
func isVolatile(table string, allVolatile bool) bool {
	return allVolatile || volatileTables[table]
}
