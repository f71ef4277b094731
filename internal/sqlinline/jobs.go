package sqlinline

const QInsertGenerationJob = `--sql 45c8aeb1-cd90-4d5f-8e61-277c704ea982
insert into generation_jobs (
    id,
    user_id,
    recommendation_id,
    seed,
    style_preset,
    item_refs,
    quality,
    variation_count,
    status,
    preview_urls,
    final_urls,
    created_at,
    updated_at
)
values (
    $1::text,
    $2::text,
    $3::text,
    $4::bigint,
    $5::text,
    $6::jsonb,
    $7::text,
    $8::int,
    $9::text,
    '[]'::jsonb,
    '[]'::jsonb,
    now(),
    now()
)
returning created_at, updated_at;
`

// QClaimGenerationJob only matches queued rows, so concurrent claims of one id
// yield a single winner.
const QClaimGenerationJob = `--sql a62b85a9-d5a3-4ff2-a6f6-12d477e555cc
update generation_jobs
set status = 'processing',
    updated_at = now()
where id = $1::text
  and status = 'queued'
returning id, user_id, recommendation_id, seed, style_preset, item_refs, quality,
          variation_count, status, preview_urls, final_urls, error_message, created_at, updated_at;
`

// QUpdateGenerationJobStatus refuses to touch rows already completed or failed.
const QUpdateGenerationJobStatus = `--sql cad6c359-d56c-4005-9e74-fb7e527e1f90
update generation_jobs
set status = $3::text,
    preview_urls = coalesce($4::jsonb, preview_urls),
    final_urls = coalesce($5::jsonb, final_urls),
    error_message = coalesce($6::text, error_message),
    updated_at = now()
where id = $1::text
  and user_id = $2::text
  and status not in ('completed', 'failed');
`

const QSelectGenerationJobStatus = `--sql 87d1cf3d-c717-4e4b-bf00-179579585ae5
select status
from generation_jobs
where id = $1::text
  and user_id = $2::text;
`

const QSelectGenerationJob = `--sql 96f8471b-a977-4286-ba8b-ce0e6c7d57b5
select id, user_id, recommendation_id, seed, style_preset, item_refs, quality,
       variation_count, status, preview_urls, final_urls, error_message, created_at, updated_at
from generation_jobs
where id = $1::text;
`

const QListGenerationJobsByStatus = `--sql e10a25dd-7a51-409e-9a74-639e42a62af9
select id, user_id, recommendation_id, seed, style_preset, item_refs, quality,
       variation_count, status, preview_urls, final_urls, error_message, created_at, updated_at
from generation_jobs
where status = $1::text
  and updated_at < $2::timestamptz
order by created_at asc
limit $3::int;
`
